package handlers

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"go.uber.org/zap"
)

// FrontendHandler forwards page requests that passed the session gate to the web frontend
type FrontendHandler struct {
	proxy *httputil.ReverseProxy
}

// NewFrontendHandler creates a proxy to frontendURL. An empty URL disables proxying.
func NewFrontendHandler(frontendURL string) (*FrontendHandler, error) {
	if frontendURL == "" {
		return &FrontendHandler{}, nil
	}

	target, err := url.Parse(frontendURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid frontend URL %q", frontendURL)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("Frontend proxy failed",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	return &FrontendHandler{proxy: proxy}, nil
}

// Serve is registered as the router's NoRoute handler
func (h *FrontendHandler) Serve(c *gin.Context) {
	if h.proxy == nil || strings.HasPrefix(c.Request.URL.Path, "/api/") {
		respondError(c, apperrors.NotFoundError("route"))
		return
	}

	h.proxy.ServeHTTP(c.Writer, c.Request)
}
