package flagsnap

import (
	"errors"
	"fmt"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// Error types that may be reported by flagsnap operations.

// ErrConfigNotAvailable is reported when no configuration document has been
// downloaded or found in the cache yet.
var ErrConfigNotAvailable = domain.ErrConfigNotAvailable

// ErrCacheMiss is returned by a Cache when it holds no value for a key.
var ErrCacheMiss = errors.New("flagsnap: cache miss")

var errMissingSchemeOrHost = errors.New("missing scheme or host")

type (
	// FetchFailedError reports a failed download. The previous snapshot
	// stays in effect.
	FetchFailedError = domain.FetchFailedError

	// SettingNotFoundError reports an unknown setting key.
	SettingNotFoundError = domain.SettingNotFoundError

	// UserContextMissingError warns that a setting with rules was evaluated
	// without a user.
	UserContextMissingError = domain.UserContextMissingError

	// ParseError reports a document or value that could not be decoded.
	ParseError = domain.ParseError
)

func IsFetchFailed(err error) bool        { return domain.IsFetchFailed(err) }
func IsSettingNotFound(err error) bool    { return domain.IsSettingNotFound(err) }
func IsUserContextMissing(err error) bool { return domain.IsUserContextMissing(err) }
func IsParseError(err error) bool         { return domain.IsParseError(err) }

// ConfigError indicates invalid configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Field, e.Message)
}
