package scheduling

import "queue-dispatch/internal/model"

// CapabilityFilter 服务点能力过滤器
type CapabilityFilter struct {
	ServicePointID string
	AllowedTypes   map[string]struct{} // 允许办理的类型编码

	// 原始映射条数；映射指向已停用类型时 AllowedTypes 可能为空，但不能视为"全部接受"
	mapped int
}

// NewCapabilityFilter 根据能力映射为指定服务点构建过滤器。
// 映射中的 RequestTypeID 经 types 转换为类型编码；找不到对应类型的映射会被忽略。
func NewCapabilityFilter(servicePointID string, mappings []model.CapabilityMapping, types []model.RequestType) *CapabilityFilter {
	codeByID := make(map[string]string, len(types))
	for _, rt := range types {
		codeByID[rt.RequestTypeID] = rt.Code
	}

	f := &CapabilityFilter{
		ServicePointID: servicePointID,
		AllowedTypes:   make(map[string]struct{}),
	}
	for _, m := range mappings {
		if m.ServicePointID != servicePointID {
			continue
		}
		f.mapped++
		if code, ok := codeByID[m.RequestTypeID]; ok {
			f.AllowedTypes[code] = struct{}{}
		}
	}
	return f
}

// acceptsAll 无任何映射条目时视为"全部接受"（兼容旧数据）
func (f *CapabilityFilter) acceptsAll() bool {
	return len(f.AllowedTypes) == 0 && f.mapped == 0
}

// Allows 判断类型编码是否允许
func (f *CapabilityFilter) Allows(code string) bool {
	if f == nil || f.acceptsAll() {
		return true
	}
	_, ok := f.AllowedTypes[code]
	return ok
}
