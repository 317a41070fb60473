package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/database"
	"github.com/pu-ac-cn/qual-backend/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Transaction 请求级事务
//
// 处理器的响应先写入缓冲区：状态码小于 400 且没有错误时提交，提交成功后才发出响应；
// 提交失败丢弃缓冲的响应，登记错误交给 ErrorHandler 返回 500。
// 其余情况回滚后原样发出；panic 时回滚后继续抛出。
func Transaction(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tx := db.WithContext(ctx).Begin()
		if tx.Error != nil {
			_ = c.Error(tx.Error)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(database.WithTx(ctx, tx))

		origin := c.Writer
		buffered := newTxWriter(origin)
		c.Writer = buffered

		committed := false
		defer func() {
			c.Writer = origin
			if !committed {
				if err := tx.Rollback().Error; err != nil {
					logger.L().Warn("事务回滚失败", zap.Error(err))
				}
			}
		}()

		c.Next()

		if buffered.Status() < http.StatusBadRequest && len(c.Errors) == 0 {
			if err := tx.Commit().Error; err != nil {
				logger.L().Error("事务提交失败", zap.Error(err), zap.String("path", c.FullPath()))
				// 事务已结束，不再回滚
				committed = true
				buffered.discard()
				_ = c.Error(err)
				return
			}
			committed = true
		}
		buffered.flush()
	}
}

// txWriter 缓冲响应，事务结束后才写到下层
type txWriter struct {
	gin.ResponseWriter
	body    bytes.Buffer
	status  int
	written bool
}

func newTxWriter(w gin.ResponseWriter) *txWriter {
	return &txWriter{ResponseWriter: w, status: w.Status()}
}

func (w *txWriter) WriteHeader(code int) {
	if code > 0 && !w.written {
		w.status = code
	}
}

func (w *txWriter) WriteHeaderNow() {
	w.written = true
}

func (w *txWriter) Write(data []byte) (int, error) {
	w.written = true
	return w.body.Write(data)
}

func (w *txWriter) WriteString(s string) (int, error) {
	w.written = true
	return w.body.WriteString(s)
}

func (w *txWriter) Status() int {
	return w.status
}

func (w *txWriter) Size() int {
	if !w.written {
		return -1
	}
	return w.body.Len()
}

func (w *txWriter) Written() bool {
	return w.written
}

// Flush 缓冲期间不向客户端刷新
func (w *txWriter) Flush() {}

// flush 把状态码和缓冲的内容写到下层
func (w *txWriter) flush() {
	w.ResponseWriter.WriteHeader(w.status)
	if !w.written {
		return
	}
	w.ResponseWriter.WriteHeaderNow()
	if w.body.Len() > 0 {
		if _, err := w.ResponseWriter.Write(w.body.Bytes()); err != nil {
			logger.L().Warn("写出响应失败", zap.Error(err))
		}
	}
}

// discard 丢弃缓冲的内容和处理器设置的内容类型
func (w *txWriter) discard() {
	w.body.Reset()
	w.written = false
	w.Header().Del("Content-Type")
	w.Header().Del("Content-Length")
}
