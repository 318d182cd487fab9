package model

import "time"

// Summary 汇总一次完整运行的结果，由调度器返回并在结束时打印。
type Summary struct {
	RunID      string
	Candidates int
	Batches    int
	Verified   int
	Rejected   map[Reason]int
	Skipped    int // 因取消而从未启动探测的候选, 不计入 Rejected
	Elapsed    time.Duration
}

func NewSummary(runID string, candidates int) *Summary {
	return &Summary{
		RunID:      runID,
		Candidates: candidates,
		Rejected:   make(map[Reason]int),
	}
}

// Record 把一个结论计入汇总。只能在批次全部结束后调用。
func (s *Summary) Record(v Verdict) {
	if v.Verified {
		s.Verified++
		return
	}
	s.Rejected[v.Reason]++
}

// RejectedTotal returns the number of rejected candidates across all reasons.
func (s *Summary) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}
