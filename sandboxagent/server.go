// Package sandboxagent is the control endpoint that runs inside a sandbox. It
// accepts component pushes and answers heartbeats.
package sandboxagent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sandbox-app-service/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// EditRequest component push
type EditRequest struct {
	Component string `json:"component"`
}

// Server writes pushed components to a single file watched by the dev server
type Server struct {
	mu            sync.Mutex
	componentPath string
}

// NewServer create agent writing to componentPath
func NewServer(componentPath string) *Server {
	return &Server{componentPath: componentPath}
}

// IsComponentValid a component must have a default export
func IsComponentValid(component string) bool {
	return strings.Contains(component, "export default")
}

// Router build the agent routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	r.POST("/edit", s.edit)
	r.GET("/heartbeat", s.heartbeat)
	return r
}

// edit replies 200 in every validation outcome; the status field carries the result
func (s *Server) edit(c *gin.Context) {
	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": "component is required"})
		return
	}

	if !IsComponentValid(req.Component) {
		logging.Warn("invalid component", "component_len", len(req.Component))
		c.JSON(200, gin.H{"status": "error", "message": "Invalid component"})
		return
	}

	if err := s.writeComponent(req.Component); err != nil {
		logging.Error("failed to write component", "path", s.componentPath, "error", err)
		c.JSON(500, gin.H{"status": "error", "message": err.Error()})
		return
	}

	logging.Info("component edited", "path", s.componentPath, "component_len", len(req.Component))
	c.JSON(200, gin.H{"status": "ok"})
}

func (s *Server) heartbeat(c *gin.Context) {
	logging.Debug("heartbeat received")
	c.JSON(200, gin.H{"status": "ok"})
}

// writeComponent replaces the file through a rename so the watcher never sees a partial write
func (s *Server) writeComponent(component string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.componentPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create component dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".component-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(component); err != nil {
		tmp.Close()
		return fmt.Errorf("write component: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.componentPath)
}
