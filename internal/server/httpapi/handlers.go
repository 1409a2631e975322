package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/albumvault/internal/common"
	"github.com/dmitrijs2005/albumvault/internal/server/models"
	"github.com/dmitrijs2005/albumvault/internal/server/uploads"
)

type startSessionRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required,gt=0"`
	MimeType    string `json:"mime_type" binding:"required"`
	AlbumID     string `json:"album_id" binding:"required"`
	ChunkSize   int64  `json:"chunk_size" binding:"required,gt=0"`
	TotalChunks int    `json:"total_chunks" binding:"required,gt=0"`
	UserID      string `json:"user_id" binding:"required"`
}

type sessionResponse struct {
	ID             string    `json:"id"`
	AlbumID        string    `json:"album_id"`
	FileName       string    `json:"file_name"`
	MimeType       string    `json:"mime_type"`
	FileSize       int64     `json:"file_size"`
	ChunkSize      int64     `json:"chunk_size"`
	TotalChunks    int       `json:"total_chunks"`
	UploadedChunks int       `json:"uploaded_chunks"`
	Status         string    `json:"status"`
	StorageKey     string    `json:"storage_key,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func toSessionResponse(s *models.UploadSession) sessionResponse {
	return sessionResponse{
		ID:             s.ID,
		AlbumID:        s.AlbumID,
		FileName:       s.FileName,
		MimeType:       s.MimeType,
		FileSize:       s.FileSize,
		ChunkSize:      s.ChunkSize,
		TotalChunks:    s.TotalChunks,
		UploadedChunks: s.ChunkCount,
		Status:         string(s.Status),
		StorageKey:     s.StorageKey,
		ExpiresAt:      s.ExpiresAt,
	}
}

type chunkResponse struct {
	Accepted       bool   `json:"accepted"`
	Duplicate      bool   `json:"duplicate"`
	UploadedChunks int    `json:"uploaded_chunks"`
	TotalChunks    int    `json:"total_chunks"`
	Status         string `json:"status"`
}

type statusResponse struct {
	sessionResponse
	MissingChunks []int `json:"missing_chunks"`
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrOutOfRange),
		errors.Is(err, common.ErrSizeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := errStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "error", err.Error())
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := s.uploads.StartSession(c.Request.Context(), &uploads.StartRequest{
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		MimeType:    req.MimeType,
		AlbumID:     req.AlbumID,
		ChunkSize:   req.ChunkSize,
		TotalChunks: req.TotalChunks,
		UserID:      req.UserID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(session))
}

func (s *Server) uploadChunk(c *gin.Context) {
	sessionID := c.Param("id")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chunk index"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file part"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open file part"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file part"})
		return
	}

	result, err := s.uploads.UploadChunk(c.Request.Context(), sessionID, index, data)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, chunkResponse{
		Accepted:       result.Accepted,
		Duplicate:      result.Duplicate,
		UploadedChunks: result.UploadedCount,
		TotalChunks:    result.TotalChunks,
		Status:         string(result.Status),
	})
}

func (s *Server) sessionStatus(c *gin.Context) {
	snapshot, err := s.uploads.GetSessionStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		sessionResponse: toSessionResponse(snapshot.Session),
		MissingChunks:   snapshot.MissingChunks,
	})
}

func (s *Server) sweep(c *gin.Context) {
	count, err := s.uploads.ExpireStaleSessions(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": count})
}
