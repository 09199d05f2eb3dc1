package service

// ── SelectionStore ──────────────────────────────────────────
//
// 维护当前选中的课程编码（插入顺序、无重复）与学分合计。
// 学分合计只做增量维护：加入时按调用方给出的学分累加并记下该值，
// 移除时减去加入时记下的学分，仅 Clear 将其归零。所有操作都不返回错误：移除不存在的课程视为成功。
// ─────────────────────────────────────────────────────────────

// SelectionOp 选课变更类型
type SelectionOp string

const (
	SelectionAdded    SelectionOp = "added"
	SelectionRemoved  SelectionOp = "removed"
	SelectionCleared  SelectionOp = "cleared"
	SelectionNoop     SelectionOp = "noop"
	SelectionSnapshot SelectionOp = "snapshot"
)

// SelectionChanged 一次变更后的结果
type SelectionChanged struct {
	Op          SelectionOp
	Code        string
	Selected    []string
	CreditTotal int
}

// SelectionStore 选课集合
type SelectionStore struct {
	codes       []string
	members     map[string]int // code → 加入时的学分
	creditTotal int
}

// NewSelectionStore 创建空选课集合
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{members: make(map[string]int)}
}

// RestoreSelection 从会话快照还原选课集合
// 重复编码只保留第一次出现；credits 缺失的成员按 0 学分记
func RestoreSelection(codes []string, credits map[string]int, creditTotal int) *SelectionStore {
	s := NewSelectionStore()
	for _, code := range codes {
		if _, ok := s.members[code]; ok {
			continue
		}
		s.members[code] = credits[code]
		s.codes = append(s.codes, code)
	}
	s.creditTotal = creditTotal
	return s
}

// Toggle 不在集合中则追加并加学分，已在集合中则移除
// 移除时忽略 credits，减去加入时记下的学分
func (s *SelectionStore) Toggle(code string, credits int) SelectionChanged {
	if s.Contains(code) {
		return s.Remove(code)
	}
	s.members[code] = credits
	s.codes = append(s.codes, code)
	s.creditTotal += credits
	return s.changed(SelectionAdded, code)
}

// Remove 移除课程；不存在时为空操作
func (s *SelectionStore) Remove(code string) SelectionChanged {
	credits, ok := s.members[code]
	if !ok {
		return s.changed(SelectionNoop, code)
	}
	delete(s.members, code)
	for i, c := range s.codes {
		if c == code {
			s.codes = append(s.codes[:i], s.codes[i+1:]...)
			break
		}
	}
	s.creditTotal -= credits
	return s.changed(SelectionRemoved, code)
}

// Clear 清空集合，学分归零
func (s *SelectionStore) Clear() SelectionChanged {
	s.codes = nil
	s.members = make(map[string]int)
	s.creditTotal = 0
	return s.changed(SelectionCleared, "")
}

// Current 当前选课的只读快照（插入顺序）
func (s *SelectionStore) Current() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Contains 是否已选
func (s *SelectionStore) Contains(code string) bool {
	_, ok := s.members[code]
	return ok
}

// Credits 每门已选课程加入时的学分（副本）
func (s *SelectionStore) Credits() map[string]int {
	out := make(map[string]int, len(s.members))
	for code, c := range s.members {
		out[code] = c
	}
	return out
}

// Len 已选数量
func (s *SelectionStore) Len() int {
	return len(s.codes)
}

// CreditTotal 学分合计
func (s *SelectionStore) CreditTotal() int {
	return s.creditTotal
}

// Snapshot 以 SelectionChanged 形式返回当前状态
func (s *SelectionStore) Snapshot() SelectionChanged {
	return s.changed(SelectionSnapshot, "")
}

func (s *SelectionStore) changed(op SelectionOp, code string) SelectionChanged {
	return SelectionChanged{
		Op:          op,
		Code:        code,
		Selected:    s.Current(),
		CreditTotal: s.creditTotal,
	}
}
