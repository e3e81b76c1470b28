package scheduling

import "strings"

// Algorithm 叫号排序算法
type Algorithm string

const (
	AlgorithmFIFO               Algorithm = "fifo"
	AlgorithmPriority           Algorithm = "priority"
	AlgorithmMultilevel         Algorithm = "multilevel"
	AlgorithmMultilevelFeedback Algorithm = "multilevel_feedback"
	AlgorithmRoundRobin         Algorithm = "round_robin"
)

// Algorithms 全部受支持的算法（用于参数校验与展示）
var Algorithms = []Algorithm{
	AlgorithmFIFO,
	AlgorithmPriority,
	AlgorithmMultilevel,
	AlgorithmMultilevelFeedback,
	AlgorithmRoundRobin,
}

// ParseAlgorithm 解析算法名称，大小写与 "-" / "_" 不敏感。
// 无法识别时原样返回且 ok=false，调用方可选择继续传入 ScheduleOrder 走降级路径。
func ParseAlgorithm(s string) (Algorithm, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	a := Algorithm(norm)
	return a, a.Valid()
}

// Valid 是否为受支持的算法
func (a Algorithm) Valid() bool {
	for _, known := range Algorithms {
		if a == known {
			return true
		}
	}
	return false
}

func (a Algorithm) String() string { return string(a) }
