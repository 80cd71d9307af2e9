package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/internal/middleware"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
)

// resourceURI binds the :id segment of user-owned resource routes
type resourceURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// currentUserID returns the signed-in user or writes a 401 envelope
func currentUserID(c *gin.Context) (string, bool) {
	claims, err := middleware.GetSession(c)
	if err != nil || claims.UserID == "" {
		respondUnauthorized(c)
		return "", false
	}
	return claims.UserID, true
}

// resourceID returns the :id path parameter. Ids that are not UUIDs cannot
// name a stored row, so they get the same 404 as a missing one.
func resourceID(c *gin.Context, resource string) (string, bool) {
	var uri resourceURI
	if err := c.ShouldBindUri(&uri); err != nil {
		attachError(c, err)
		respondError(c, apperrors.NotFoundError(resource))
		return "", false
	}
	return uri.ID, true
}
