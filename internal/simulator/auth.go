package simulator

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"expeditor/internal/models"
)

const userContextKey = "user"

// Claims carried in the simulator's access tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	if s := os.Getenv("EXPEDITOR_SIM_JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("expeditor-sim-dev-secret")
}

// staff is the simulator's fixed account list. Passwords are plaintext on
// purpose; this server only ever runs on a developer's machine.
var staff = map[string]struct {
	Password string
	User     models.User
}{
	"chef": {
		Password: "mise",
		User:     models.User{ID: uuid.NewString(), Username: "chef", FirstName: "Auguste", LastName: "Gusteau", Role: "kitchen"},
	},
	"expo": {
		Password: "fire",
		User:     models.User{ID: uuid.NewString(), Username: "expo", FirstName: "Colette", LastName: "Tatou", Role: "expeditor"},
	},
}

func issueToken(user models.User) (string, error) {
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "expeditor-sim",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret())
}

func validateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// authRequired rejects requests without a valid bearer token.
func authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "missing bearer token",
			})
			return
		}

		claims, err := validateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "invalid or expired token",
			})
			return
		}

		c.Set(userContextKey, claims)
		c.Next()
	}
}
