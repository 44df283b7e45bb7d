package public

import (
	"errors"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// TrackPageViewRequest 受保护页面访问上报
type TrackPageViewRequest struct {
	AccessToken string `json:"accessToken"`
}

// GetProtectedContent 凭访问令牌读取受保护内容
func (h *Handler) GetProtectedContent(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		respondError(c, response.CodeUnauthorized, "error.access_token_required", nil)
		return
	}

	content, err := h.ContentService.GetForToken(c.Request.Context(), c.Param("uuid"), token, requestMeta(c))
	if err != nil {
		var wrongContent *service.WrongContentError
		if errors.As(err, &wrongContent) {
			respondErrorWithData(c, response.CodeForbidden, "error.wrong_content", gin.H{
				"error":             "wrong_content",
				"targetContentUuid": wrongContent.TargetContentUUID,
			}, nil)
			return
		}
		respondWithMappedError(c, err, contentErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, content)
}

// TrackPageView 记录受保护页面访问
func (h *Handler) TrackPageView(c *gin.Context) {
	var req TrackPageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.ContentService.RecordPageView(c.Request.Context(), req.AccessToken, requestMeta(c)); err != nil {
		respondWithMappedError(c, err, accessTokenErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{"recorded": true})
}
