// Package telegram verifies Mini App initData per Telegram's Web App
// contract and exposes it as HTTP middleware.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"nanobanana/internal/logging"
)

// InitDataHeader carries the raw initData string from the Mini App client.
const InitDataHeader = "X-Telegram-Init-Data"

// DefaultMaxAge bounds how old a verified initData payload may be.
const DefaultMaxAge = 24 * time.Hour

var (
	ErrMissingHash = errors.New("initData carries no hash")
	ErrBadHash     = errors.New("initData hash mismatch")
	ErrExpired     = errors.New("initData is too old")
)

// User is the subset of the Telegram user object the app reads.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// InitData is the verified payload.
type InitData struct {
	User     *User
	AuthDate time.Time
}

// Verify checks the HMAC signature of a raw initData query string against
// the bot token and returns the parsed payload.
//
// The scheme is fixed by Telegram: the secret key is
// HMAC-SHA256("WebAppData", botToken); the signature covers every field
// except "hash", sorted by key and joined as key=value lines.
func Verify(raw, botToken string, maxAge time.Duration) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("initData parse: %w", err)
	}
	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	lines := make([]string, 0, len(values))
	for key := range values {
		lines = append(lines, key+"="+values.Get(key))
	}
	sort.Strings(lines)
	checkString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	sig := hmac.New(sha256.New, secret.Sum(nil))
	sig.Write([]byte(checkString))
	want := hex.EncodeToString(sig.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(gotHash)) {
		return nil, ErrBadHash
	}

	data := &InitData{}
	if ad := values.Get("auth_date"); ad != "" {
		unix, err := strconv.ParseInt(ad, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("initData auth_date: %w", err)
		}
		data.AuthDate = time.Unix(unix, 0)
		if maxAge > 0 && time.Since(data.AuthDate) > maxAge {
			return nil, ErrExpired
		}
	}
	if userJSON := values.Get("user"); userJSON != "" {
		var user User
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			return nil, fmt.Errorf("initData user: %w", err)
		}
		data.User = &user
	}
	return data, nil
}

const contextKey = "telegram.initData"

// Middleware rejects /api requests whose initData does not verify against
// the bot token. An empty token disables verification, for local runs
// outside Telegram.
func Middleware(botToken string, logger logging.Logger) gin.HandlerFunc {
	log := logging.OrNop(logger)
	return func(c *gin.Context) {
		if botToken == "" {
			c.Next()
			return
		}
		data, err := Verify(c.GetHeader(InitDataHeader), botToken, DefaultMaxAge)
		if err != nil {
			log.Warn("initData rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Telegram initData"})
			return
		}
		c.Set(contextKey, data)
		c.Next()
	}
}

// FromContext returns the verified initData set by Middleware, if any.
func FromContext(c *gin.Context) (*InitData, bool) {
	value, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	data, ok := value.(*InitData)
	return data, ok
}
