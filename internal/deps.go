// Package internal wires the services every handler needs
package internal

import (
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/internal/notify"
	"bitwise74/filehub-api/internal/service"

	"github.com/chenyahui/gin-cache/persist"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Auth     *identity.JWTResolver
	Accounts *service.Accounts
	Uploads  *service.Uploads
	Hubs     *service.Hubs
	Invites  *service.Invites
	Mail     *notify.Dispatcher
	Cache    persist.CacheStore
}
