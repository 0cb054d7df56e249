package strategy

import (
	"errors"
	"fmt"
)

// ActionName identifies a corrective action on the wire and in the audit log.
type ActionName string

const (
	ActionCompressFile     ActionName = "compress_file"
	ActionConvertFormat    ActionName = "convert_format"
	ActionEnhanceAudio     ActionName = "enhance_audio"
	ActionResampleAudio    ActionName = "resample_audio"
	ActionAdjustParameters ActionName = "adjust_parameters"
	ActionCleanupResources ActionName = "cleanup_resources"
)

// ErrUnknownAction is returned by DecodeRemedy for names outside the fixed set.
var ErrUnknownAction = errors.New("no handler for action")

// Remedy is one of the fixed set of corrective actions. The set is closed:
// only the types in this file implement it.
type Remedy interface {
	Action() ActionName
	Parameters() map[string]any
	isRemedy()
}

// CompressFile shrinks an upload to TargetSize bytes.
type CompressFile struct {
	TargetSize int64
}

// ConvertFormat re-encodes an upload into TargetFormat (e.g. ".wav").
type ConvertFormat struct {
	TargetFormat string
}

// EnhanceAudio raises audio quality to TargetQuality (0..1).
type EnhanceAudio struct {
	TargetQuality float64
}

// ResampleAudio resamples audio to TargetRate Hz.
type ResampleAudio struct {
	TargetRate int
}

// AdjustParameters replaces model tuning values.
type AdjustParameters struct {
	LearningRate float64
	BatchSize    int
}

// CleanupResources frees memory until usage is at or below TargetMemory bytes.
type CleanupResources struct {
	TargetMemory int64
}

func (CompressFile) Action() ActionName     { return ActionCompressFile }
func (ConvertFormat) Action() ActionName    { return ActionConvertFormat }
func (EnhanceAudio) Action() ActionName     { return ActionEnhanceAudio }
func (ResampleAudio) Action() ActionName    { return ActionResampleAudio }
func (AdjustParameters) Action() ActionName { return ActionAdjustParameters }
func (CleanupResources) Action() ActionName { return ActionCleanupResources }

func (r CompressFile) Parameters() map[string]any {
	return map[string]any{"target_size": r.TargetSize}
}

func (r ConvertFormat) Parameters() map[string]any {
	return map[string]any{"target_format": r.TargetFormat}
}

func (r EnhanceAudio) Parameters() map[string]any {
	return map[string]any{"target_quality": r.TargetQuality}
}

func (r ResampleAudio) Parameters() map[string]any {
	return map[string]any{"target_rate": r.TargetRate}
}

func (r AdjustParameters) Parameters() map[string]any {
	return map[string]any{"target_params": r.TargetParams()}
}

func (r CleanupResources) Parameters() map[string]any {
	return map[string]any{"target_memory": r.TargetMemory}
}

// TargetParams is the tuning map applied by the adjust_parameters handler.
func (r AdjustParameters) TargetParams() map[string]any {
	return map[string]any{
		"learning_rate": r.LearningRate,
		"batch_size":    r.BatchSize,
	}
}

func (CompressFile) isRemedy()     {}
func (ConvertFormat) isRemedy()    {}
func (EnhanceAudio) isRemedy()     {}
func (ResampleAudio) isRemedy()    {}
func (AdjustParameters) isRemedy() {}
func (CleanupResources) isRemedy() {}

// DecodeRemedy builds a Remedy from an action name and a loosely typed
// parameter map, as received from an operator or a stored record.
func DecodeRemedy(name string, params map[string]any) (Remedy, error) {
	switch ActionName(name) {
	case ActionCompressFile:
		size, ok := Int64(params["target_size"])
		if !ok {
			return nil, missingParam(name, "target_size")
		}
		return CompressFile{TargetSize: size}, nil
	case ActionConvertFormat:
		format, ok := params["target_format"].(string)
		if !ok {
			return nil, missingParam(name, "target_format")
		}
		return ConvertFormat{TargetFormat: format}, nil
	case ActionEnhanceAudio:
		q, ok := Float64(params["target_quality"])
		if !ok {
			return nil, missingParam(name, "target_quality")
		}
		return EnhanceAudio{TargetQuality: q}, nil
	case ActionResampleAudio:
		rate, ok := Int64(params["target_rate"])
		if !ok {
			return nil, missingParam(name, "target_rate")
		}
		return ResampleAudio{TargetRate: int(rate)}, nil
	case ActionAdjustParameters:
		// Flat learning_rate/batch_size keys are accepted; target_params wins.
		r := DefaultTuning()
		applyTuning(&r, params)
		if target, ok := params["target_params"].(map[string]any); ok {
			applyTuning(&r, target)
		}
		return r, nil
	case ActionCleanupResources:
		mem, ok := Int64(params["target_memory"])
		if !ok {
			return nil, missingParam(name, "target_memory")
		}
		return CleanupResources{TargetMemory: mem}, nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnknownAction, name)
	}
}

func applyTuning(r *AdjustParameters, params map[string]any) {
	if lr, ok := Float64(params["learning_rate"]); ok {
		r.LearningRate = lr
	}
	if bs, ok := Int64(params["batch_size"]); ok {
		r.BatchSize = int(bs)
	}
}

func missingParam(action, param string) error {
	return fmt.Errorf("action %s: missing or invalid parameter %s", action, param)
}
