package protocol

import (
	"errors"
	"fmt"

	"vagabond/game"
)

// ErrMalformedMatch 帧能解码，但缺字段或实体数量不对
var ErrMalformedMatch = errors.New("malformed match")

// shape 必填字段表：值为 nil 的键只要求存在且非 null
type shape map[string]shape

var (
	pointShape = shape{"x": nil, "y": nil}
	rectShape  = shape{"top_left": pointShape, "bottom_right": pointShape}

	entityShape = shape{
		"id": nil,
		"hp": nil,
		"entity_actions": shape{
			"facing": nil, "moving_left": nil, "moving_right": nil,
			"can_attack": nil, "attacking": nil, "damage_check": nil, "blocking": nil,
		},
		"attack_animator": shape{"current_frame": nil, "current_repeat": nil},
		"pos":             pointShape,
		"vel":             pointShape,
		"bound":           rectShape,
		"attack_bound":    rectShape,
		"redo_status":     nil,
		"reset":           nil,
	}

	matchShape = shape{"clock": shape{"current": nil}, "server_entities": nil, "match_status": nil}
)

func (s shape) check(path string, v any) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s is not an object", ErrMalformedMatch, path)
	}
	for key, sub := range s {
		child, ok := obj[key]
		if !ok || child == nil {
			return fmt.Errorf("%w: missing %s.%s", ErrMalformedMatch, path, key)
		}
		if sub == nil {
			continue
		}
		if err := sub.check(path+"."+key, child); err != nil {
			return err
		}
	}
	return nil
}

func checkMatchShape(raw map[string]any) error {
	if err := matchShape.check("match", raw); err != nil {
		return err
	}
	list, ok := raw["server_entities"].([]any)
	if !ok || len(list) != game.Slots {
		return fmt.Errorf("%w: server_entities must hold %d entities", ErrMalformedMatch, game.Slots)
	}
	for i, e := range list {
		if err := entityShape.check(fmt.Sprintf("server_entities[%d]", i), e); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMatch 解码一帧完整比赛。
// 解码器会把缺失字段填成零值，所以先按通用结构检查字段齐全、实体恰好两个，
// 不完整的帧不会进入结算。
func DecodeMatch(c Codec, frame []byte) (game.ServerGameMatch, error) {
	var m game.ServerGameMatch
	var raw map[string]any
	if err := DecodeFrame(c, frame, &raw); err != nil {
		return m, err
	}
	if err := checkMatchShape(raw); err != nil {
		return m, err
	}
	if err := DecodeFrame(c, frame, &m); err != nil {
		return m, err
	}
	return m, nil
}
