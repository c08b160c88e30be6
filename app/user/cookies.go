package user

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func setCookie(c *gin.Context, name, value string, maxAge int, httpOnly bool) {
	c.SetCookie(name, value, maxAge, "/", "", viper.GetBool("host.ssl.enabled"), httpOnly)
}
