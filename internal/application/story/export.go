package story

import (
	"fmt"
	"strings"

	"storyspark-api/internal/domain/entity"
	"storyspark-api/pkg/errors"
)

// sceneSeparator 导出文本中场景之间的分隔条
const sceneSeparator = "\n\n---\n\n"

// Export 把持有全部场景的会话渲染为纯文本文档
// 格式：可选标题行，随后按场景号升序输出 "Scene {n}" 头与正文，
// 场景之间以水平分隔条隔开。
func Export(session *entity.StorySession) (string, error) {
	if session == nil {
		return "", errors.ErrSessionNotFound
	}
	if !session.Exportable() {
		return "", errors.ErrExportNotReady.WithDetail(session.ID)
	}

	parts := make([]string, 0, entity.MaxScenes)
	for n := 1; n <= entity.MaxScenes; n++ {
		parts = append(parts, fmt.Sprintf("Scene %d\n\n%s", n, session.Scenes[n]))
	}

	full := strings.Join(parts, sceneSeparator)
	if session.Title != "" {
		full = session.Title + "\n\n" + full
	}
	return full, nil
}
