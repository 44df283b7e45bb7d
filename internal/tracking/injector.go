package tracking

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const (
	openPath  = "/api/v1/track/open"
	clickPath = "/api/v1/track/click"
)

// Injector 为邮件正文注入打开像素与点击跳转链接
type Injector struct {
	BaseURL string
}

// NewInjector 创建注入器
func NewInjector(baseURL string) *Injector {
	return &Injector{BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// OpenURL 返回打开像素地址
func (i *Injector) OpenURL(trackingID string) string {
	return fmt.Sprintf("%s%s?id=%s", i.base(), openPath, url.QueryEscape(trackingID))
}

// ClickURL 返回点击跳转地址
func (i *Injector) ClickURL(trackingID, destination string) string {
	return fmt.Sprintf("%s%s?id=%s&url=%s", i.base(), clickPath, url.QueryEscape(trackingID), url.QueryEscape(destination))
}

// PixelTag 返回 1x1 打开像素标签
func (i *Injector) PixelTag(trackingID string) string {
	return fmt.Sprintf(`<img src="%s" width="1" height="1" style="display:none;" alt="" />`, i.OpenURL(trackingID))
}

// AddTracking 改写外链为点击跟踪地址，并在 </body> 前插入唯一的打开像素
// 无 </body> 时追加到末尾；同一 trackingID 已存在的像素与链接不会重复处理
func (i *Injector) AddTracking(body, trackingID string) string {
	pixelSrc := i.OpenURL(trackingID)
	pixelPresent := strings.Contains(body, pixelSrc)

	var out bytes.Buffer
	out.Grow(len(body) + 256)
	z := html.NewTokenizer(strings.NewReader(body))
	pixelWritten := pixelPresent
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// 解析异常时原样保留剩余内容
				out.Write(z.Raw())
			}
			break
		}
		raw := z.Raw()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			token := z.Token()
			if token.Data != "a" {
				out.Write(raw)
				continue
			}
			if rewritten, ok := i.rewriteAnchor(token, trackingID); ok {
				out.WriteString(rewritten.String())
				continue
			}
			out.Write(raw)
		case html.EndTagToken:
			name, _ := z.TagName()
			if !pixelWritten && string(name) == "body" {
				out.WriteString(i.PixelTag(trackingID))
				pixelWritten = true
			}
			out.Write(raw)
		default:
			out.Write(raw)
		}
	}
	if !pixelWritten {
		out.WriteString(i.PixelTag(trackingID))
	}
	return out.String()
}

func (i *Injector) rewriteAnchor(token html.Token, trackingID string) (html.Token, bool) {
	for idx, attr := range token.Attr {
		if !strings.EqualFold(attr.Key, "href") {
			continue
		}
		href := strings.TrimSpace(attr.Val)
		if !isTrackableURL(href) || strings.Contains(href, clickPath+"?") {
			return token, false
		}
		token.Attr[idx].Val = i.ClickURL(trackingID, href)
		return token, true
	}
	return token, false
}

func (i *Injector) base() string {
	return strings.TrimRight(i.BaseURL, "/")
}

func isTrackableURL(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
