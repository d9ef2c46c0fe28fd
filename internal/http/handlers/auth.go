package handlers

import (
	"database/sql"
	"net/http"
	"time"

	intconfig "backoffice/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthUser is the user payload returned on login.
type AuthUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	DriverID int64  `json:"driver_id,omitempty"`
	Status   string `json:"status"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates by email or username and issues a signed token.
// Driver accounts carry their driver_id in the claims so trip actions can
// check crew membership.
func Login(env intconfig.Env) gin.HandlerFunc {
	secret := []byte(env.JWTSecret)
	return func(c *gin.Context) {
		var req loginRequest
		if !BindJSONOrError(c, &req) {
			return
		}

		var (
			user         AuthUser
			passwordHash string
			driverID     sql.NullInt64
		)
		err := intconfig.DB.QueryRow(`
			SELECT id, name, username, email, phone, password_hash, role, driver_id, status
			FROM users
			WHERE email = ? OR username = ?
		`, req.Email, req.Email).Scan(
			&user.ID,
			&user.Name,
			&user.Username,
			&user.Email,
			&user.Phone,
			&passwordHash,
			&user.Role,
			&driverID,
			&user.Status,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email/username or password"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed: " + err.Error()})
			}
			return
		}
		if user.Status != "active" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account is disabled"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email/username or password"})
			return
		}
		if driverID.Valid {
			user.DriverID = driverID.Int64
		}

		claims := jwt.MapClaims{
			"user_id": user.ID,
			"role":    user.Role,
			"exp":     time.Now().Add(24 * time.Hour).Unix(),
		}
		if user.DriverID > 0 {
			claims["driver_id"] = user.DriverID
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tokenString, err := token.SignedString(secret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": tokenString,
			"user":  user,
		})
	}
}
