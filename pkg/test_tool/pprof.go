package testtool

import (
	"net/http"
	_ "net/http/pprof" // 註冊 /debug/pprof endpoint

	"reelconnect_service/pkg/config"
	"reelconnect_service/pkg/logger"

	"go.uber.org/zap"
)

// StartPprof 只在 local 環境啟動 pprof 監控伺服器, 用來觀察 feed goroutine 是否洩漏
func StartPprof(addr string) {
	if !config.IsLocal() {
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Errorf("pprof server failed: ", err)
		}
	}()
}
