package auth

import (
	"santiye-backend/internal/apperr"
	"santiye-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Actor bir isteği yapan kimliği taşır. Servis katmanı yetki
// kararlarını handler'lara dağıtmak yerine bu tip üzerinden verir.
type Actor struct {
	ID   uint
	Name string
	Role models.UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// RequireAdmin durum geçişlerindeki yönetici şartı için tek noktadan
// yetki kontrolü.
func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return apperr.Forbiddenf("bu geçişi yalnızca yönetici yapabilir")
	}
	return nil
}

// ActorFromCtx JWT middleware'in Locals'a koyduğu bilgilerden aktörü kurar.
func ActorFromCtx(c *fiber.Ctx) (Actor, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return Actor{}, fiber.NewError(fiber.StatusForbidden, "Kullanıcı bilgisi alınamadı")
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return Actor{}, fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
	}
	name, _ := c.Locals(CtxUserNameKey).(string)

	return Actor{ID: id, Name: name, Role: role}, nil
}
