package controllers

import (
	"PinguinGuard/models"
	"PinguinGuard/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

var permissionGuard *services.PermissionChangeGuard

func SetPermissionGuard(guard *services.PermissionChangeGuard) {
	permissionGuard = guard
}

type permissionChangeInput struct {
	ChildID        string            `json:"child_id" binding:"required"`
	TargetGuardian string            `json:"target_guardian" binding:"required"`
	Permissions    models.Permission `json:"permissions" binding:"required"`
}

func CheckPermissionChange(c *gin.Context) {
	var input permissionChangeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	decision, err := permissionGuard.CheckPermissionChange(c.Request.Context(), callerID(c), input.ChildID, input.TargetGuardian, input.Permissions)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, decision)
}

// UpdateGuardianPermission отвечает 403 с решением, если понижение заблокировано.
func UpdateGuardianPermission(c *gin.Context) {
	var input permissionChangeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	decision, err := permissionGuard.UpdateGuardianPermission(c.Request.Context(), callerID(c), input.ChildID, input.TargetGuardian, input.Permissions)
	if err != nil {
		respondError(c, err)
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": decision.Reason, "data": decision})
		return
	}
	respondData(c, http.StatusOK, decision)
}
