package clickhouse

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSNNative(t *testing.T) {
	cfg := defaultConfig()
	WithHost("ch.local")(&cfg)
	WithDatabase("stocksim")(&cfg)
	WithCredentials("reader", "p@ss")(&cfg)
	WithMaxExecutionTime(30 * time.Second)(&cfg)

	u, err := url.Parse(BuildDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/stocksim", u.Path)
	assert.Equal(t, "reader", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)

	q := u.Query()
	assert.Equal(t, "5s", q.Get("dial_timeout"))
	assert.Equal(t, "10s", q.Get("read_timeout"))
	assert.Equal(t, "30", q.Get("max_execution_time"))
	assert.Empty(t, q.Get("async_insert"))
}

func TestBuildDSNHTTPAsync(t *testing.T) {
	cfg := defaultConfig()
	WithHost("ch.local")(&cfg)
	WithPort(8123)(&cfg)
	WithHTTP(true)(&cfg)
	WithAsyncInsert(true, true)(&cfg)

	u, err := url.Parse(BuildDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "ch.local:8123", u.Host)
	assert.Nil(t, u.User)
	assert.Equal(t, "1", u.Query().Get("async_insert"))
	assert.Equal(t, "1", u.Query().Get("wait_for_async_insert"))
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	assert.EqualError(t, err, "clickhouse: host is required")
}

func TestOptionsKeepDefaultsOnZero(t *testing.T) {
	cfg := defaultConfig()
	WithPort(0)(&cfg)
	WithDatabase("")(&cfg)
	WithTimeouts(0, 0)(&cfg)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "default", cfg.Database)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}
