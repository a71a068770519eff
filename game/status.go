package game

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Vote 重赛投票
type Vote int

const (
	VoteMaybe Vote = iota
	VoteYes
	VoteNo
)

func (v Vote) String() string {
	switch v {
	case VoteYes:
		return "Yes"
	case VoteNo:
		return "No"
	default:
		return "Maybe"
	}
}

func (v Vote) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Vote) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Yes":
		*v = VoteYes
	case "No":
		*v = VoteNo
	case "Maybe":
		*v = VoteMaybe
	default:
		return fmt.Errorf("unknown vote %q", b)
	}
	return nil
}

// StatusKind 比赛状态的分支
type StatusKind int

const (
	StatusInProgress StatusKind = iota
	StatusOver
	StatusRematch
)

// MatchStatus 带标签的比赛状态：InProgress | Over(winner) | Rematch(vote)。
// Winner 仅在 Over 下有意义，Vote 仅在 Rematch 下有意义。
type MatchStatus struct {
	Kind   StatusKind `msgpack:"kind"`
	Winner int        `msgpack:"winner"`
	Vote   Vote       `msgpack:"vote"`
}

func InProgress() MatchStatus {
	return MatchStatus{Kind: StatusInProgress}
}

func Over(winner int) MatchStatus {
	return MatchStatus{Kind: StatusOver, Winner: winner}
}

func Rematch(v Vote) MatchStatus {
	return MatchStatus{Kind: StatusRematch, Vote: v}
}

func (s MatchStatus) IsInProgress() bool { return s.Kind == StatusInProgress }

// VoteOf 非 Rematch 状态一律视为 Maybe
func (s MatchStatus) VoteOf() Vote {
	if s.Kind != StatusRematch {
		return VoteMaybe
	}
	return s.Vote
}

func (s MatchStatus) String() string {
	switch s.Kind {
	case StatusOver:
		return fmt.Sprintf("Over(%d)", s.Winner)
	case StatusRematch:
		return fmt.Sprintf("Rematch(%s)", s.Vote)
	default:
		return "InProgress"
	}
}

// MarshalJSON 与 serde 外部标签枚举格式一致：
// "InProgress" / {"Over":1} / {"Rematch":"Yes"}
func (s MatchStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusOver:
		return json.Marshal(map[string]int{"Over": s.Winner})
	case StatusRematch:
		return json.Marshal(map[string]Vote{"Rematch": s.Vote})
	default:
		return []byte(`"InProgress"`), nil
	}
}

func (s *MatchStatus) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		if name != "InProgress" {
			return fmt.Errorf("unknown match status %q", name)
		}
		*s = InProgress()
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(b, &tagged); err != nil {
		return fmt.Errorf("match status: %w", err)
	}
	if raw, ok := tagged["Over"]; ok {
		var w int
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("match status Over: %w", err)
		}
		*s = Over(w)
		return nil
	}
	if raw, ok := tagged["Rematch"]; ok {
		var v Vote
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("match status Rematch: %w", err)
		}
		*s = Rematch(v)
		return nil
	}
	return fmt.Errorf("unknown match status %s", b)
}
