package controllers

import (
	"PinguinGuard/models"
	"PinguinGuard/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

var proposalService *services.ProposalService

func SetProposalService(service *services.ProposalService) {
	proposalService = service
}

func CreateProposal(c *gin.Context) {
	var input services.CreateProposalRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := proposalService.CreateProposal(c.Request.Context(), callerID(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	// Экстренное изменение применено сразу, предложение не создавалось
	if result.Applied {
		respondData(c, http.StatusOK, result)
		return
	}
	respondData(c, http.StatusCreated, result)
}

func GetProposal(c *gin.Context) {
	proposal, err := proposalService.GetProposal(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, proposal)
}

func ListProposals(c *gin.Context) {
	proposals, err := proposalService.ListProposals(c.Request.Context(), callerID(c), c.Param("child_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if proposals == nil {
		proposals = []models.ChangeProposal{}
	}
	respondData(c, http.StatusOK, proposals)
}

func RespondToProposal(c *gin.Context) {
	var input struct {
		Decision services.Decision `json:"decision" binding:"required"`
		Message  string            `json:"message"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	proposal, err := proposalService.RespondToProposal(c.Request.Context(), callerID(c), c.Param("id"), input.Decision, input.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, proposal)
}

func CancelCoolingPeriod(c *gin.Context) {
	proposal, err := proposalService.CancelCoolingPeriod(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, proposal)
}

// SignProposal берет тип подписанта из токена, а не из тела запроса.
func SignProposal(c *gin.Context) {
	var input struct {
		Confirmation string `json:"confirmation"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	signerType := models.SignerParent
	if c.GetString("user_type") == services.UserTypeChild {
		signerType = models.SignerChild
	}

	proposal, err := proposalService.SignProposal(c.Request.Context(), callerID(c), signerType, c.Param("id"), input.Confirmation)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, proposal)
}

func DisputeProposal(c *gin.Context) {
	var input struct {
		Reason string `json:"reason"`
	}
	// тело необязательно, но присланное тело должно разбираться
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	proposal, err := proposalService.DisputeProposal(c.Request.Context(), callerID(c), c.Param("id"), input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, proposal)
}

func ResolveDispute(c *gin.Context) {
	proposal, err := proposalService.ResolveDispute(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, proposal)
}

func GetChildSettings(c *gin.Context) {
	settings, err := proposalService.GetSettings(c.Request.Context(), callerID(c), c.Param("child_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, settings)
}
