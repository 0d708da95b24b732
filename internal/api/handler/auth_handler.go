package handler

import (
	"Courier/internal/api/config"
	"Courier/internal/api/dto"
	"Courier/internal/pkg/response"
	"Courier/internal/pkg/security"
	"Courier/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users []config.AuthUser
}

func NewAuthHandler(users []config.AuthUser) *AuthHandler {
	return &AuthHandler{users: users}
}

// Login 账号密码登录，签发 JWT
func (s *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var matched *config.AuthUser
	for i := range s.users {
		if s.users[i].Username == req.Username {
			matched = &s.users[i]
			break
		}
	}
	if matched == nil {
		response.Error(c, service.ErrUserNotFound)
		return
	}
	if err := security.CheckPasswordHash(req.Password, matched.PasswordHash); err != nil {
		response.Fail(c, response.Unauthorized, "用户名或密码错误")
		return
	}

	token, err := security.GenerateToken(matched.UserID, matched.Username, matched.Guest)
	if err != nil {
		response.Error(c, service.UnExpectedError)
		return
	}

	response.Success(c, dto.LoginResp{UserID: matched.UserID, Token: token})
}
