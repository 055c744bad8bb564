package logger

import "go.uber.org/zap"

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// ─── Dominio ───

// PluginID identifica la instancia del plugin (no es secreto).
func PluginID(v string) zap.Field { return zap.String("plugin_id", v) }

// Username del dueño o del usuario autenticado.
func Username(v string) zap.Field { return zap.String("username", v) }

// KeyVersion es la versión del rolling key (diagnóstico de desync).
func KeyVersion(v int64) zap.Field { return zap.Int64("key_version", v) }

// TokenID identifica un API token estático (nunca el token en sí).
func TokenID(v string) zap.Field { return zap.String("token_id", v) }

// AuthMode: "rolling" | "static".
func AuthMode(v string) zap.Field { return zap.String("auth_mode", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Err(err error) zap.Field { return zap.Error(err) }

// ─── Genéricos ───

func Count(v int) zap.Field { return zap.Int("count", v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
