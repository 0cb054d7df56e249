// Package strategy maps a failure kind and its context to a corrective action.
package strategy

import (
	"strings"

	"github.com/vietddude/remediator/internal/core/domain"
)

// NoStrategyMessage is reported when no rule matches.
const NoStrategyMessage = "no applicable correction strategy"

const (
	// StandardSampleRate is the rate every processed file is expected to have.
	StandardSampleRate = 44100

	// CleanupTargetMemory is the memory goal of cleanup_resources.
	CleanupTargetMemory int64 = 512 * 1024 * 1024

	// DefaultTargetFormat is the format unsupported uploads are converted to.
	DefaultTargetFormat = ".wav"
)

// Limits are the thresholds the rules compare context values against.
type Limits struct {
	MaxUploadSize     int64
	AllowedExtensions []string
	MinQuality        float64
	MaxMemory         int64
}

// DefaultLimits mirrors the upload and processing defaults of the service.
func DefaultLimits() Limits {
	return Limits{
		MaxUploadSize:     10 * 1024 * 1024,
		AllowedExtensions: []string{".wav", ".mp3"},
		MinQuality:        0.8,
		MaxMemory:         1024 * 1024 * 1024,
	}
}

// DefaultTuning is the parameter set adjust_parameters falls back to.
func DefaultTuning() AdjustParameters {
	return AdjustParameters{LearningRate: 0.001, BatchSize: 32}
}

// Resolution is the resolver verdict: either a Remedy or a reason there is none.
type Resolution struct {
	Success bool
	Remedy  Remedy
	Message string
}

// Action returns the chosen action name, or "" when nothing matched.
func (r Resolution) Action() ActionName {
	if r.Remedy == nil {
		return ""
	}
	return r.Remedy.Action()
}

func found(r Remedy) Resolution {
	return Resolution{Success: true, Remedy: r}
}

func notFound() Resolution {
	return Resolution{Success: false, Message: NoStrategyMessage}
}

// Resolver evaluates the rule table. It holds only immutable limits and is
// safe for concurrent use.
type Resolver struct {
	limits  Limits
	allowed map[string]struct{}
}

// NewResolver creates a resolver with the given limits.
func NewResolver(limits Limits) *Resolver {
	allowed := make(map[string]struct{}, len(limits.AllowedExtensions))
	for _, ext := range limits.AllowedExtensions {
		allowed[normalizeExt(ext)] = struct{}{}
	}
	limits.AllowedExtensions = append([]string(nil), limits.AllowedExtensions...)
	return &Resolver{limits: limits, allowed: allowed}
}

// Limits returns the thresholds the resolver was built with.
func (r *Resolver) Limits() Limits {
	l := r.limits
	l.AllowedExtensions = append([]string(nil), r.limits.AllowedExtensions...)
	return l
}

// Resolve picks the first matching rule for kind. It never panics and always
// returns one of the two Resolution shapes.
func (r *Resolver) Resolve(kind domain.FailureKind, ctx map[string]any) (res Resolution) {
	defer func() {
		if recover() != nil {
			res = notFound()
		}
	}()

	switch kind {
	case domain.FailureKindFileValidation:
		return r.resolveFileValidation(ctx)
	case domain.FailureKindProcessing:
		return r.resolveProcessing(ctx)
	case domain.FailureKindOptimization:
		return r.resolveOptimization(ctx)
	case domain.FailureKindSystem:
		return r.resolveSystem(ctx)
	default:
		return notFound()
	}
}

func (r *Resolver) resolveFileValidation(ctx map[string]any) Resolution {
	if size, ok := Float64(ctx["file_size"]); ok && size > float64(r.limits.MaxUploadSize) {
		return found(CompressFile{TargetSize: r.limits.MaxUploadSize})
	}
	if ext, ok := ctx["file_extension"].(string); ok {
		if _, allowed := r.allowed[normalizeExt(ext)]; !allowed {
			return found(ConvertFormat{TargetFormat: DefaultTargetFormat})
		}
	}
	return notFound()
}

func (r *Resolver) resolveProcessing(ctx map[string]any) Resolution {
	if q, ok := Float64(ctx["audio_quality"]); ok && q < r.limits.MinQuality {
		return found(EnhanceAudio{TargetQuality: r.limits.MinQuality})
	}
	if rate, ok := Float64(ctx["sample_rate"]); ok && rate != StandardSampleRate {
		return found(ResampleAudio{TargetRate: StandardSampleRate})
	}
	return notFound()
}

func (r *Resolver) resolveOptimization(ctx map[string]any) Resolution {
	if _, ok := ctx["model_params"]; ok {
		return found(DefaultTuning())
	}
	return notFound()
}

func (r *Resolver) resolveSystem(ctx map[string]any) Resolution {
	usage, ok := memoryUsage(ctx)
	if ok && usage > float64(r.limits.MaxMemory) {
		return found(CleanupResources{TargetMemory: CleanupTargetMemory})
	}
	return notFound()
}

// memoryUsage reads resource_usage.memory_usage from a nested map.
func memoryUsage(ctx map[string]any) (float64, bool) {
	switch ru := ctx["resource_usage"].(type) {
	case map[string]any:
		return Float64(ru["memory_usage"])
	case map[string]int64:
		v, ok := ru["memory_usage"]
		return float64(v), ok
	case map[string]uint64:
		v, ok := ru["memory_usage"]
		return float64(v), ok
	case map[string]float64:
		v, ok := ru["memory_usage"]
		return v, ok
	}
	return 0, false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
