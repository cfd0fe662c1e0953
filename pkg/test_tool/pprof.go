package testtool

import (
	"errors"
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"support_chat_service/pkg/config"
	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// StartPprof 根據設定啟動 pprof 監控伺服器, never in production.
// The returned server is nil when pprof stays off.
func StartPprof(cfg config.PprofConfig) *http.Server {
	if !cfg.Enabled || config.IsProduction() {
		logger.Log.Info("pprof is disabled")
		return nil
	}

	// 只綁定內部位址, DefaultServeMux 帶有 /debug/pprof/
	srv := &http.Server{Addr: cfg.Addr, Handler: http.DefaultServeMux}
	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("pprof server failed", err)
		}
	}()
	return srv
}

// pprof endpoints:
// 	•	/debug/pprof/ → 顯示所有可用的分析數據
// 	•	/debug/pprof/goroutine → 顯示所有 Goroutines, useful to spot leaked subscriber pumps
// 	•	/debug/pprof/heap → 顯示記憶體分配
// 	•	/debug/pprof/profile → 執行 30 秒 CPU 分析
//
// go tool pprof http://127.0.0.1:6060/debug/pprof/goroutine
