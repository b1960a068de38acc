package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ContentFields 提供内容类型/名称/命中状态字段，供加载日志复用。
func ContentFields(kind, name string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"action":    "load_content",
		"kind":      kind,
		"name":      name,
		"cache_hit": cacheHit,
	}
}

// RequestFields 提供请求 ID、方法、路径与状态码字段，供诊断接口日志复用。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
	}
}
