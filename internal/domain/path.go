package domain

// PathPair 是一个描述符对应的两条文件系统路径。
//
// 约束：
// - TempAbs 使用远端原始文件名（便于中断恢复时按源名做廉价存在性检查）
// - FinalAbs 使用清洗后的人类可读名（含原始扩展名）
// - 两者都在同一渲染后的目录下，rename 才能保持原子性
type PathPair struct {
	TempAbs  string
	FinalAbs string
}
