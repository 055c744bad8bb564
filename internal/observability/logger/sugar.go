package logger

import "go.uber.org/zap"

// S retorna el SugaredLogger del singleton. Lo usan los CLIs (nokectl) para
// logs printf-style de depuración.
func S() *zap.SugaredLogger {
	return L().Sugar()
}
