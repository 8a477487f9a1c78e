package usecases

import (
	"context"
	"image"

	"github.com/rs/zerolog/log"

	"vesteja/internal/domain/repositories"
	"vesteja/internal/domain/services"
	"vesteja/internal/domain/valueobjects"
)

// PhotoEvaluator runs the acceptance gate on a submitted photo. It never
// fails: every problem is folded into the verdict.
type PhotoEvaluator interface {
	Evaluate(ctx context.Context, photo *valueobjects.ImageData) valueobjects.AnalysisResult
}

type GateOptions struct {
	// MaxDimension caps the long edge of the image handed to the pose
	// model. Zero disables downscaling.
	MaxDimension int
	// LenientLighting skips the lighting check instead of rejecting when
	// no raster can be produced.
	LenientLighting bool
}

type GateUseCase struct {
	gate      *services.PhotoGate
	estimator repositories.PoseEstimator
	cache     repositories.VerdictCache
	opts      GateOptions
}

// NewGateUseCase wires the gate. cache may be nil.
func NewGateUseCase(
	gate *services.PhotoGate,
	estimator repositories.PoseEstimator,
	cache repositories.VerdictCache,
	opts GateOptions,
) *GateUseCase {
	return &GateUseCase{
		gate:      gate,
		estimator: estimator,
		cache:     cache,
		opts:      opts,
	}
}

func (uc *GateUseCase) Evaluate(ctx context.Context, photo *valueobjects.ImageData) valueobjects.AnalysisResult {
	failed := valueobjects.Rejected(valueobjects.ReasonAnalysisFailed)
	if photo == nil {
		return failed
	}

	img, err := photo.Decode()
	if err != nil {
		log.Warn().Err(err).Msg("Photo could not be decoded")
		return failed
	}

	if verdict, ok := uc.checkLighting(img); !ok {
		return verdict
	}

	var digest string
	if uc.cache != nil {
		digest = photo.Digest()
		if verdict, ok := uc.cache.Lookup(digest, img); ok {
			log.Debug().Str("reason", string(verdict.Reason())).Msg("Pose verdict served from cache")
			return verdict
		}
	}

	poses, err := uc.estimator.EstimatePoses(ctx, services.Downscale(img, uc.opts.MaxDimension))
	if err != nil {
		log.Warn().Err(err).Msg("Pose estimation failed")
		return failed
	}

	verdict := uc.gate.CheckPoses(poses)
	if uc.cache != nil {
		uc.cache.Store(digest, img, verdict)
	}

	log.Debug().
		Int("poses", len(poses)).
		Bool("accepted", verdict.IsAccepted()).
		Str("reason", string(verdict.Reason())).
		Msg("Photo analysed")

	return verdict
}

// checkLighting reports ok=false with the rejection when the photo must stop
// here. The raster only lives for the duration of this call.
func (uc *GateUseCase) checkLighting(img image.Image) (valueobjects.AnalysisResult, bool) {
	raster, err := services.Rasterize(img)
	if err != nil {
		if uc.opts.LenientLighting {
			log.Warn().Err(err).Msg("Lighting check skipped")
			return valueobjects.Accepted(), true
		}
		log.Warn().Err(err).Msg("Lighting check unavailable")
		return valueobjects.Rejected(valueobjects.ReasonAnalysisFailed), false
	}

	mean := services.MeanBrightness(raster)
	verdict := uc.gate.CheckLighting(mean)
	if !verdict.IsAccepted() {
		log.Debug().Float64("brightness", mean).Str("reason", string(verdict.Reason())).Msg("Photo rejected on lighting")
		return verdict, false
	}
	return verdict, true
}
