package scheduling

import "queue-dispatch/internal/model"

// DefaultPriorityWeight 未知请求类型的默认优先级权重
const DefaultPriorityWeight = 5

// Weight 类型权重查询结果。Known=false 表示类型未登记（或已停用），Value 为默认权重
type Weight struct {
	Value int
	Known bool
}

// UnknownWeight 未知类型的显式变体
var UnknownWeight = Weight{Value: DefaultPriorityWeight, Known: false}

// WeightTable 类型编码 → 优先级权重
type WeightTable map[string]int

// NewWeightTable 由已启用的请求类型构建权重表（停用类型视为未知）
func NewWeightTable(types []model.RequestType) WeightTable {
	t := make(WeightTable, len(types))
	for _, rt := range types {
		if !rt.Enabled {
			continue
		}
		t[rt.Code] = rt.PriorityWeight
	}
	return t
}

// Lookup 查询类型权重，未知类型返回 UnknownWeight
func (t WeightTable) Lookup(code string) Weight {
	if w, ok := t[code]; ok {
		return Weight{Value: w, Known: true}
	}
	return UnknownWeight
}
