// Package api provides the REST API server for jianpu2midi
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/jianpu2midi/pkg/config"
	"github.com/james-see/jianpu2midi/pkg/converter"
	"github.com/james-see/jianpu2midi/pkg/notation"
)

// @title Jianpu2MIDI API
// @version 1.0
// @description API for converting jianpu numbered notation to MIDI
// @host localhost:8080
// @BasePath /api/v1

// MaxUploadSize bounds request bodies
const MaxUploadSize = 1 << 20

// Version is reported as the Sentry release
var Version = "dev"

// Server serves conversions with a fixed set of converter options
type Server struct {
	opts converter.Options
	log  logrus.FieldLogger
}

// NewServer creates a Server. A nil logger uses the standard logrus logger.
func NewServer(opts converter.Options, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{opts: opts, log: log}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.log), gin.Recovery(), sentryMiddleware())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.GET("/instruments", listInstruments)
		v1.POST("/convert", s.handleConvert)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/inspect", s.handleInspect)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the configured port
func StartServer(cfg config.Config) error {
	if cfg.LogLevel < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	flush, err := InitSentry(cfg)
	if err != nil {
		return err
	}
	defer flush()

	s := NewServer(cfg.Converter, logrus.StandardLogger())
	addr := fmt.Sprintf(":%d", cfg.Port)
	logrus.WithField("addr", addr).Info("starting API server")
	return s.Router().Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "jianpu2midi",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the accepted input extensions and conversions
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{".jianpu", ".nmn", ".txt", ".mid"},
		"conversions": converter.GetSupportedConversions(),
	})
}

// listInstruments godoc
// @Summary List General MIDI instruments
// @Description Returns the program numbers accepted by @instrument
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]interface{}
// @Router /api/v1/instruments [get]
func listInstruments(c *gin.Context) {
	names := notation.Instruments()
	instruments := make([]gin.H, len(names))
	for i, name := range names {
		instruments[i] = gin.H{"program": i, "name": name}
	}
	c.JSON(http.StatusOK, gin.H{"instruments": instruments})
}

// handleConvert godoc
// @Summary Convert jianpu to MIDI
// @Description Upload a jianpu file (multipart field "file") or send it as the request body and receive a MIDI file
// @Tags convert
// @Accept multipart/form-data
// @Accept plain
// @Produce audio/midi
// @Param file formData file false "jianpu file to convert"
// @Param ticks_per_beat query int false "Default ticks per beat (24-960)"
// @Param velocity query int false "Note-on velocity (1-127)"
// @Param pitch_policy query string false "reject or clamp"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/convert [post]
func (s *Server) handleConvert(c *gin.Context) {
	conv, ok := s.converterFor(c)
	if !ok {
		return
	}
	content, name, ok := readUpload(c)
	if !ok {
		return
	}

	result, err := conv.Convert(string(content))
	if err != nil {
		s.log.WithError(err).WithField("file", name).Warn("conversion failed")
		c.JSON(statusFor(err), gin.H{
			"error":    "conversion failed",
			"problems": converter.Problems(err),
		})
		return
	}

	for _, w := range result.Warnings {
		s.log.WithField("file", name).Debug(w.String())
	}
	c.Header("X-Jianpu-Warnings", strconv.Itoa(len(result.Warnings)))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", converter.OutputPath(name)))
	c.Data(http.StatusOK, "audio/midi", result.Data)
}

// handleValidate godoc
// @Summary Validate jianpu
// @Description Runs the whole conversion and reports warnings and problems without returning MIDI
// @Tags convert
// @Accept multipart/form-data
// @Accept plain
// @Produce json
// @Param file formData file false "jianpu file to validate"
// @Success 200 {object} converter.Report
// @Failure 400 {object} map[string]string
// @Router /api/v1/validate [post]
func (s *Server) handleValidate(c *gin.Context) {
	conv, ok := s.converterFor(c)
	if !ok {
		return
	}
	content, _, ok := readUpload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, conv.Validate(string(content)))
}

// handleInspect godoc
// @Summary Inspect a MIDI file
// @Description Upload a MIDI file and receive a summary of its tracks
// @Tags inspect
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to inspect"
// @Success 200 {object} converter.Summary
// @Failure 400 {object} map[string]string
// @Router /api/v1/inspect [post]
func (s *Server) handleInspect(c *gin.Context) {
	data, _, ok := readUpload(c)
	if !ok {
		return
	}
	if converter.DetectFormatFromContent(data) != converter.FormatMIDI {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a MIDI file"})
		return
	}

	summary, err := converter.Inspect(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// converterFor applies the query overrides to the server's options
func (s *Server) converterFor(c *gin.Context) (*converter.Converter, bool) {
	opts := s.opts

	if v := c.Query("ticks_per_beat"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < notation.MinTicksPerBeat || n > notation.MaxTicksPerBeat {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ticks_per_beat must be between 24 and 960"})
			return nil, false
		}
		opts.TicksPerBeat = uint16(n)
	}
	if v := c.Query("velocity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 127 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "velocity must be between 1 and 127"})
			return nil, false
		}
		opts.Velocity = uint8(n)
	}
	if v := c.Query("pitch_policy"); v != "" {
		policy, ok := notation.ParsePitchPolicy(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pitch_policy must be reject or clamp"})
			return nil, false
		}
		opts.PitchPolicy = policy
	}
	return converter.New(opts), true
}

// readUpload returns the multipart "file" field, or the raw body for any
// other content type
func readUpload(c *gin.Context) ([]byte, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return nil, "", false
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return nil, "", false
		}
		return data, filepath.Base(header.Filename), true
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return nil, "", false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty body"})
		return nil, "", false
	}
	return data, "converted.jianpu", true
}

// statusFor maps conversion errors to HTTP status codes
func statusFor(err error) int {
	var (
		docErr  *converter.DocumentError
		metaErr *notation.MetadataError
	)
	switch {
	case errors.As(err, &docErr), errors.As(err, &metaErr), errors.Is(err, converter.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
