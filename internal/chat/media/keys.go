package media

import (
	"fmt"
	"path"
	"strings"
	"time"

	"reelconnect_service/internal/chat/domain"
)

// ObjectKeys storage keys of one upload
type ObjectKeys struct {
	Media     string
	Thumbnail string
}

// KeysFor build {ns}/{id}/media/{ts}_{base}.{ext} and the parallel thumbnails/ key
func KeysFor(conv domain.Conversation, fileName, contentType string, now time.Time) ObjectKeys {
	ts := now.UnixMilli()
	base, ext := splitName(fileName, contentType, ts)
	prefix := fmt.Sprintf("%s/%s", conv.Namespace(), conv.ID)
	return ObjectKeys{
		Media:     fmt.Sprintf("%s/media/%d_%s.%s", prefix, ts, base, ext),
		Thumbnail: fmt.Sprintf("%s/thumbnails/%d_%s.jpg", prefix, ts, base),
	}
}

func splitName(fileName, contentType string, ts int64) (string, string) {
	// 避免檔名裡的路徑分隔字元改變 key 的層級
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(fileName))

	ext := strings.TrimPrefix(path.Ext(name), ".")
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = fmt.Sprintf("file-%d", ts)
	}
	if ext == "" {
		ext = subtype(contentType)
	}
	return base, ext
}

func subtype(contentType string) string {
	ct := strings.SplitN(contentType, ";", 2)[0]
	if i := strings.Index(ct, "/"); i >= 0 && i < len(ct)-1 {
		return strings.TrimSpace(ct[i+1:])
	}
	return "bin"
}

// IsVideo MIME type check
func IsVideo(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "video/")
}
