package client

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenSkew 令牌到期前预留的余量，避免重连途中过期
const tokenSkew = 5 * time.Second

// SessionClaims 服务器签发的会话令牌内容
type SessionClaims struct {
	PlayerID uint32 `json:"player_id"`
	RoomID   string `json:"room_id,omitempty"`
	jwt.RegisteredClaims
}

// ParseSessionToken 解析会话令牌
// 客户端没有签名密钥，只读取 claims，验证由服务器负责
func ParseSessionToken(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("解析会话令牌失败: %w", err)
	}
	return claims, nil
}

// TokenUsable 令牌是否还能用于断线重连
func TokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims, err := ParseSessionToken(token)
	if err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return now.Add(tokenSkew).Before(exp.Time)
}
