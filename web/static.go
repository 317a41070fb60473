// Package web 前端静态文件服务
//
// 配置 STATIC_PATH 后，未匹配任何路由的 GET/HEAD 请求由这里处理：
// 文件存在时直接返回，否则返回 index.html 交给前端路由。
package web

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
)

// StaticConfig 静态文件服务配置
type StaticConfig struct {
	// Root 静态文件根目录
	Root fs.FS
	// IndexFile 默认首页文件
	IndexFile string
	// APIPrefix 这些前缀下未匹配的请求返回 JSON 404，不回退到首页
	APIPrefix []string
}

// DiskConfig 从磁盘目录提供静态文件
func DiskConfig(dir string, apiPrefix ...string) *StaticConfig {
	return &StaticConfig{
		Root:      os.DirFS(dir),
		IndexFile: "index.html",
		APIPrefix: append([]string{"/health", "/metrics"}, apiPrefix...),
	}
}

// StaticHandler 静态文件处理器
type StaticHandler struct {
	config *StaticConfig
}

// NewStaticHandler 创建静态文件处理器
func NewStaticHandler(config *StaticConfig) *StaticHandler {
	if config.IndexFile == "" {
		config.IndexFile = "index.html"
	}
	return &StaticHandler{config: config}
}

// IsAPIPath 检查路径是否为 API 路径，空前缀忽略
func (h *StaticHandler) IsAPIPath(p string) bool {
	for _, prefix := range h.config.APIPrefix {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// FileExists 检查文件是否存在且不是目录
func (h *StaticHandler) FileExists(p string) bool {
	stat, err := fs.Stat(h.config.Root, fsName(p))
	return err == nil && !stat.IsDir()
}

// fsName 转为 fs.FS 使用的相对路径
func fsName(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// serve 写出文件内容
// 不经过 http.FileServer，它会把 /index.html 重定向到目录
func (h *StaticHandler) serve(c *gin.Context, p string) bool {
	f, err := h.config.Root.Open(fsName(p))
	if err != nil {
		return false
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		return false
	}
	content, ok := f.(io.ReadSeeker)
	if !ok {
		raw, err := io.ReadAll(f)
		if err != nil {
			return false
		}
		content = bytes.NewReader(raw)
	}
	http.ServeContent(c.Writer, c.Request, stat.Name(), stat.ModTime(), content)
	c.Abort()
	return true
}

// ServeFile 返回文件，目录返回其下的 index.html
func (h *StaticHandler) ServeFile(c *gin.Context, p string) bool {
	p = path.Clean("/" + p)
	if p == "/" {
		p = "/" + h.config.IndexFile
	}
	if !h.FileExists(p) {
		indexPath := path.Join(p, h.config.IndexFile)
		if !h.FileExists(indexPath) {
			return false
		}
		p = indexPath
	}
	return h.serve(c, p)
}

// serveIndex 返回首页（用于 SPA 路由）
func (h *StaticHandler) serveIndex(c *gin.Context) bool {
	return h.serve(c, h.config.IndexFile)
}

// SPAHandler 返回 SPA 路由处理器（用于 NoRoute）
func (h *StaticHandler) SPAHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		method := c.Request.Method

		if h.IsAPIPath(p) || (method != http.MethodGet && method != http.MethodHead) {
			response.Error(c, response.NotFound("接口不存在"))
			return
		}
		if h.ServeFile(c, p) {
			return
		}
		// 带扩展名的路径是资源文件，不回退到首页
		if path.Ext(p) == "" && h.serveIndex(c) {
			return
		}
		response.Error(c, response.NotFound(""))
	}
}

// SetupRoutes 设置静态文件路由
func (h *StaticHandler) SetupRoutes(router *gin.Engine) {
	router.NoRoute(h.SPAHandler())
}
