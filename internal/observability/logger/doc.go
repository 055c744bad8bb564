// Package logger expone un logger Zap singleton con scoping por contexto.
//
// # Decisiones
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada request lleva su propio logger "scoped"
//     (request_id, plugin_id, username) sin crear un nuevo core.
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//   - Nunca loguear rolling keys, secrets de plugin, tokens ni códigos TOTP.
//
// # Uso
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,
//	    Level: os.Getenv("LOG_LEVEL"),
//	})
//	defer logger.Sync()
//
// En handlers/services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("pluginauth.authorize"))
//	log.Info("plugin authorized", logger.PluginID(id), logger.Username(owner))
package logger
