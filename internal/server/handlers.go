package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/ironsheep/dhpsf-tools-mcp/internal/calibration"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/detection"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/imaging"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/store"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dhpsf_load", "dhpsf_estimate_angle").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errInvalidArgs marks argument errors so they map to -32602.
var errInvalidArgs = errors.New("invalid arguments")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors return -32602. Tool execution errors return -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errInvalidArgs) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Frame inspection
	case "dhpsf_load":
		return s.handleLoad(args)
	case "dhpsf_binarize":
		return s.handleBinarize(args)
	case "dhpsf_segment":
		return s.handleSegment(args)
	case "dhpsf_estimate_angle":
		return s.handleEstimateAngle(args)

	// Calibration
	case "dhpsf_calibrate":
		return s.handleCalibrate(ctx, args)
	case "dhpsf_defocus":
		return s.handleDefocus(ctx, args)
	case "dhpsf_runs":
		return s.handleRuns(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, treating empty input as an empty object.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// detectionArgs are the per-call overrides of the configured detection options.
// Pointer fields distinguish "not given" from a zero value such as threshold 0.
type detectionArgs struct {
	Threshold    *float64 `json:"threshold"`
	Polarity     *string  `json:"polarity"`
	Connectivity *int     `json:"connectivity"`
	Method       *string  `json:"method"`
	MinRadius    *int     `json:"min_radius"`
	MaxRadius    *int     `json:"max_radius"`
}

func (a detectionArgs) apply(base detection.Options) (detection.Options, error) {
	opts := base
	if a.Threshold != nil {
		opts.Threshold = *a.Threshold
	}
	if a.Polarity != nil {
		p, err := detection.ParsePolarity(*a.Polarity)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", errInvalidArgs, err)
		}
		opts.Polarity = p
	}
	if a.Connectivity != nil {
		c, err := detection.ParseConnectivity(*a.Connectivity)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", errInvalidArgs, err)
		}
		opts.Connectivity = c
	}
	if a.Method != nil {
		opts.Method = detection.Method(*a.Method)
	}
	if a.MinRadius != nil {
		opts.MinRadius = *a.MinRadius
	}
	if a.MaxRadius != nil {
		opts.MaxRadius = *a.MaxRadius
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return opts, nil
}

func (s *Server) estimator(a detectionArgs) (*detection.Estimator, error) {
	opts, err := a.apply(s.defaults)
	if err != nil {
		return nil, err
	}
	return detection.NewEstimator(opts)
}

// previewScale returns the requested scale, defaulting to 1.
func previewScale(scale float64) float64 {
	if scale <= 0 {
		return 1.0
	}
	return scale
}

// === Frame Inspection Handlers ===

type loadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleLoad(args json.RawMessage) (interface{}, error) {
	var a loadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidArgs)
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type frameArgs struct {
	detectionArgs
	Path         string  `json:"path"`
	Scale        float64 `json:"scale"`
	IncludeImage *bool   `json:"include_image"`
}

func (a frameArgs) wantImage() bool {
	return a.IncludeImage == nil || *a.IncludeImage
}

// loadFrame builds the estimator for a and loads the frame it names.
func (s *Server) loadFrame(a frameArgs) (*detection.Estimator, *detection.Image, error) {
	if a.Path == "" {
		return nil, nil, fmt.Errorf("%w: path is required", errInvalidArgs)
	}
	est, err := s.estimator(a.detectionArgs)
	if err != nil {
		return nil, nil, err
	}
	img, err := s.loader.Intensity(a.Path)
	if err != nil {
		return nil, nil, err
	}
	return est, img, nil
}

// BinarizeResult is the output of dhpsf_binarize.
type BinarizeResult struct {
	Rows             int                  `json:"rows"`
	Cols             int                  `json:"cols"`
	ForegroundPixels int                  `json:"foreground_pixels"`
	Threshold        float64              `json:"threshold"`
	Polarity         string               `json:"polarity"`
	Image            *imaging.ImageResult `json:"image,omitempty"`
}

func (s *Server) handleBinarize(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	est, img, err := s.loadFrame(a)
	if err != nil {
		return nil, err
	}
	mask, err := est.Binarize(img)
	if err != nil {
		return nil, err
	}

	opts := est.Options()
	result := &BinarizeResult{
		Rows:             mask.Rows,
		Cols:             mask.Cols,
		ForegroundPixels: mask.Foreground(),
		Threshold:        opts.Threshold,
		Polarity:         opts.Polarity.String(),
	}
	if a.wantImage() {
		if result.Image, err = imaging.EncodePNG(imaging.MaskImage(mask), previewScale(a.Scale)); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// RegionInfo describes one labeled region.
type RegionInfo struct {
	Label    int              `json:"label"`
	Pixels   int              `json:"pixels"`
	Centroid *detection.Point `json:"centroid"`
}

// SegmentResult is the output of dhpsf_segment.
type SegmentResult struct {
	Regions      int                  `json:"regions"`
	Connectivity int                  `json:"connectivity"`
	Details      []RegionInfo         `json:"details"`
	Image        *imaging.ImageResult `json:"image,omitempty"`
}

func (s *Server) handleSegment(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	est, img, err := s.loadFrame(a)
	if err != nil {
		return nil, err
	}
	mask, err := est.Binarize(img)
	if err != nil {
		return nil, err
	}

	conn := est.Options().Connectivity
	labels := detection.Label(mask, conn)
	sizes := detection.RegionSizes(labels)

	result := &SegmentResult{
		Regions:      labels.Count,
		Connectivity: int(conn),
		Details:      make([]RegionInfo, 0, labels.Count),
	}
	for l := 1; l <= labels.Count; l++ {
		c, err := detection.Centroid(labels, l)
		if err != nil {
			return nil, err
		}
		result.Details = append(result.Details, RegionInfo{Label: l, Pixels: sizes[l], Centroid: &c})
	}
	if a.wantImage() {
		if result.Image, err = imaging.EncodePNG(imaging.LabelImage(labels), previewScale(a.Scale)); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// AngleResult is the output of dhpsf_estimate_angle.
type AngleResult struct {
	*detection.Estimate
	Defocus   *float64             `json:"defocus,omitempty"`
	InRange   *bool                `json:"defocus_in_range,omitempty"`
	Annotated *imaging.ImageResult `json:"annotated_image,omitempty"`
}

type estimateArgs struct {
	frameArgs
	ModelPath string `json:"model_path"`
}

func (s *Server) handleEstimateAngle(args json.RawMessage) (interface{}, error) {
	var a estimateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	est, img, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}

	res, err := est.Estimate(img)
	if err != nil {
		return nil, err
	}

	result := &AngleResult{Estimate: res}
	if a.ModelPath != "" {
		mf, err := calibration.LoadModel(a.ModelPath)
		if err != nil {
			return nil, err
		}
		d, err := mf.Defocus(res.AngleDegrees)
		if err != nil {
			return nil, err
		}
		in := mf.InRange(d)
		result.Defocus = &d
		result.InRange = &in
	}
	if a.wantImage() {
		annotated := imaging.AnnotateCentroids(res.Mask, res.First, res.Second)
		if result.Annotated, err = imaging.EncodePNG(annotated, previewScale(a.Scale)); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// === Calibration Handlers ===

type calibrateArgs struct {
	detectionArgs
	Directory    string              `json:"directory"`
	Frames       []calibration.Frame `json:"frames"`
	DefocusBound *float64            `json:"defocus_bound"`
	Workers      int                 `json:"workers"`
	SaveModel    string              `json:"save_model"`
}

// CalibrateResult is the output of dhpsf_calibrate.
type CalibrateResult struct {
	RunID        string               `json:"run_id,omitempty"`
	Frames       int                  `json:"frames"`
	Samples      []calibration.Sample `json:"samples"`
	Failures     []store.RunFailure   `json:"failures,omitempty"`
	DefocusBound float64              `json:"defocus_bound"`
	Fit          *calibration.Fit     `json:"fit,omitempty"`
	FitError     string               `json:"fit_error,omitempty"`
	Predictions  []float64            `json:"predictions,omitempty"`
	ModelPath    string               `json:"model_path,omitempty"`
}

func (s *Server) handleCalibrate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a calibrateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	frames := a.Frames
	source := "frames"
	switch {
	case a.Directory != "" && len(a.Frames) > 0:
		return nil, fmt.Errorf("%w: give either directory or frames, not both", errInvalidArgs)
	case a.Directory != "":
		var err error
		if frames, err = calibration.DiscoverFrames(a.Directory); err != nil {
			return nil, err
		}
		source = a.Directory
	case len(a.Frames) == 0:
		return nil, fmt.Errorf("%w: directory or frames is required", errInvalidArgs)
	}

	bound := s.cfg.Calibration.DefocusBound
	if a.DefocusBound != nil {
		if *a.DefocusBound <= 0 {
			return nil, fmt.Errorf("%w: defocus_bound must be positive", errInvalidArgs)
		}
		bound = *a.DefocusBound
	}
	workers := a.Workers
	if workers <= 0 {
		workers = s.cfg.Calibration.Workers
	}

	est, err := s.estimator(a.detectionArgs)
	if err != nil {
		return nil, err
	}

	sweep, err := calibration.NewRunner(s.loader, est, workers).Run(ctx, frames)
	if err != nil {
		return nil, err
	}
	fit, fitErr := sweep.Fit(calibration.WithinDefocus(bound))
	run := store.NewRun(source, est.Options(), bound, sweep, fit, fitErr)

	result := &CalibrateResult{
		Frames:       len(frames),
		Samples:      sweep.Samples,
		Failures:     run.Failures,
		DefocusBound: bound,
		Fit:          fit,
	}
	if fitErr != nil {
		log.Printf("[WARN] calibration fit failed for %s: %v", source, fitErr)
		result.FitError = fitErr.Error()
	} else {
		result.Predictions = sweep.Predictions(fit.Model)
		if a.SaveModel != "" {
			if err := calibration.SaveModel(calibration.NewModelFile(fit, bound), a.SaveModel); err != nil {
				return nil, err
			}
			result.ModelPath = a.SaveModel
		}
	}

	if s.runs != nil {
		id, err := s.runs.SaveRun(ctx, run)
		if err != nil {
			return nil, err
		}
		result.RunID = id
	}
	return result, nil
}

type defocusArgs struct {
	Angle     *float64 `json:"angle_degrees"`
	Slope     *float64 `json:"slope"`
	Intercept *float64 `json:"intercept"`
	ModelPath string   `json:"model_path"`
	RunID     string   `json:"run_id"`
}

// DefocusResult is the output of dhpsf_defocus.
type DefocusResult struct {
	AngleDegrees float64           `json:"angle_degrees"`
	Defocus      float64           `json:"defocus"`
	InRange      bool              `json:"in_range"`
	Model        calibration.Model `json:"model"`
	ModelSource  string            `json:"model_source"`
}

func (s *Server) handleDefocus(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a defocusArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Angle == nil {
		return nil, fmt.Errorf("%w: angle_degrees is required", errInvalidArgs)
	}

	model, source, err := s.resolveModel(ctx, a)
	if err != nil {
		return nil, err
	}
	d, err := model.Defocus(*a.Angle)
	if err != nil {
		return nil, err
	}
	return &DefocusResult{
		AngleDegrees: *a.Angle,
		Defocus:      d,
		InRange:      model.InRange(d),
		Model:        *model,
		ModelSource:  source,
	}, nil
}

// resolveModel picks the calibration for dhpsf_defocus, in order: explicit
// slope and intercept, model file, stored run, newest stored fit, configured
// model file.
func (s *Server) resolveModel(ctx context.Context, a defocusArgs) (*calibration.Model, string, error) {
	switch {
	case a.Slope != nil || a.Intercept != nil:
		if a.Slope == nil || a.Intercept == nil {
			return nil, "", fmt.Errorf("%w: slope and intercept must be given together", errInvalidArgs)
		}
		return &calibration.Model{
			Slope:      *a.Slope,
			Intercept:  *a.Intercept,
			MinDefocus: -calibration.DefaultDefocusBound,
			MaxDefocus: calibration.DefaultDefocusBound,
		}, "arguments", nil
	case a.ModelPath != "":
		mf, err := calibration.LoadModel(a.ModelPath)
		if err != nil {
			return nil, "", err
		}
		return &mf.Model, a.ModelPath, nil
	case a.RunID != "":
		if s.runs == nil {
			return nil, "", errors.New("run history is disabled: set storage.dbPath in the config")
		}
		run, err := s.runs.GetRun(ctx, a.RunID)
		if err != nil {
			return nil, "", err
		}
		if run.Model == nil {
			return nil, "", fmt.Errorf("run %s has no fitted model: %s", run.ID, run.FitError)
		}
		return run.Model, "run " + run.ID, nil
	}

	if s.runs != nil {
		m, id, err := s.runs.LatestModel(ctx)
		if err == nil {
			return m, "run " + id, nil
		}
		if !errors.Is(err, store.ErrRunNotFound) {
			return nil, "", err
		}
	}

	mf, err := calibration.LoadModel(s.cfg.Calibration.ModelPath)
	if err != nil {
		return nil, "", fmt.Errorf("no calibration available: %w", err)
	}
	return &mf.Model, s.cfg.Calibration.ModelPath, nil
}

type runsArgs struct {
	RunID string `json:"run_id"`
	Limit int    `json:"limit"`
}

func (s *Server) handleRuns(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a runsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if s.runs == nil {
		return nil, errors.New("run history is disabled: set storage.dbPath in the config")
	}
	if a.RunID != "" {
		return s.runs.GetRun(ctx, a.RunID)
	}
	if a.Limit <= 0 {
		a.Limit = 20
	}
	runs, err := s.runs.ListRuns(ctx, a.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"runs": runs}, nil
}
