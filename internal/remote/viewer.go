package remote

import (
	"discuss/internal/models"
	"discuss/internal/utils"
)

// TokenViewer 从登录 token 里读出当前用户，签名由服务端校验
type TokenViewer struct {
	id models.UserID
	ok bool
}

func NewTokenViewer(token string) TokenViewer {
	if token == "" {
		return TokenViewer{}
	}
	claims, err := utils.ParseUnverified(token)
	if err != nil {
		return TokenViewer{}
	}
	id, err := claims.Viewer()
	if err != nil {
		return TokenViewer{}
	}
	return TokenViewer{id: id, ok: true}
}

func (v TokenViewer) CurrentViewerID() (models.UserID, bool) {
	return v.id, v.ok
}
