package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// frameProperties returns the schema properties shared by the per-frame tools:
// the frame path, the detection overrides, and any tool-specific extras.
func frameProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the frame (TIFF, PNG, JPEG or GIF)",
		},
		"threshold": map[string]interface{}{
			"type":        "number",
			"description": "Binarization threshold on normalized intensity, 0-1 (default: from config, 0.4)",
		},
		"polarity": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"dark", "bright"},
			"description": "Whether the lobes are darker or brighter than the background (default: dark)",
		},
		"connectivity": map[string]interface{}{
			"type":        "integer",
			"enum":        []int{4, 8},
			"description": "Pixel connectivity for region labeling (default: 4)",
		},
		"method": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"components", "circles"},
			"description": "Lobe detector: connected components or Hough circles (default: components)",
		},
		"min_radius": map[string]interface{}{
			"type":        "integer",
			"description": "Smallest circle radius in pixels for the circles method (default: 2)",
		},
		"max_radius": map[string]interface{}{
			"type":        "integer",
			"description": "Radius bound (exclusive) for the circles method (default: 5)",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

var previewProperties = map[string]interface{}{
	"include_image": map[string]interface{}{
		"type":        "boolean",
		"description": "Return a base64 PNG preview (default: true)",
	},
	"scale": map[string]interface{}{
		"type":        "number",
		"description": "Preview scale factor; small frames read better enlarged (default: 1.0)",
	},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frame Inspection
		{
			Name:        "dhpsf_load",
			Description: "Load a frame and return its dimensions, format and bit depth. Use this first to check that a camera frame decodes as expected.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the frame",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "dhpsf_binarize",
			Description: "Normalize a frame to 0-1 and threshold it into a foreground mask. Returns the foreground pixel count and a preview of the mask, useful for tuning threshold and polarity.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": frameProperties(previewProperties),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "dhpsf_segment",
			Description: "Binarize a frame and label its connected regions. Returns each region's size and centroid plus a color-coded label preview.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": frameProperties(previewProperties),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "dhpsf_estimate_angle",
			Description: "Locate the two lobes of a double-helix PSF and measure the angle of the line joining them, in degrees within (-180, 180]. Optionally converts the angle to defocus with a saved model.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": frameProperties(map[string]interface{}{
					"include_image": previewProperties["include_image"],
					"scale":         previewProperties["scale"],
					"model_path": map[string]interface{}{
						"type":        "string",
						"description": "Calibration model file (YAML) used to report defocus",
					},
				}),
				"required": []string{"path"},
			},
		},

		// Calibration
		{
			Name:        "dhpsf_calibrate",
			Description: "Measure the lobe angle on every frame of a defocus sweep and fit a linear angle-versus-defocus model over the frames inside the defocus bound. Frames that fail are reported, not fatal.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"directory": map[string]interface{}{
						"type":        "string",
						"description": "Directory of frames named by defocus value (e.g. -1.5.tif, 0.tif)",
					},
					"frames": map[string]interface{}{
						"type":        "array",
						"description": "Explicit frame list, used instead of directory",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"defocus": map[string]interface{}{"type": "number"},
								"path":    map[string]interface{}{"type": "string"},
							},
							"required": []string{"defocus", "path"},
						},
					},
					"defocus_bound": map[string]interface{}{
						"type":        "number",
						"description": "Only frames with |defocus| below this are fitted (default: from config, 4)",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Frames measured in parallel (default: from config)",
					},
					"save_model": map[string]interface{}{
						"type":        "string",
						"description": "Write the fitted model to this YAML file",
					},
					"threshold":    frameProperties(nil)["threshold"],
					"polarity":     frameProperties(nil)["polarity"],
					"connectivity": frameProperties(nil)["connectivity"],
					"method":       frameProperties(nil)["method"],
				},
			},
		},
		{
			Name:        "dhpsf_defocus",
			Description: "Convert a lobe angle to defocus with a calibration model. The model comes from slope and intercept, a model file, a stored run, or else the newest stored fit or the configured model file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"angle_degrees": map[string]interface{}{
						"type":        "number",
						"description": "Measured lobe angle in degrees",
					},
					"slope": map[string]interface{}{
						"type":        "number",
						"description": "Model slope in degrees per defocus unit (requires intercept)",
					},
					"intercept": map[string]interface{}{
						"type":        "number",
						"description": "Model intercept in degrees (requires slope)",
					},
					"model_path": map[string]interface{}{
						"type":        "string",
						"description": "Calibration model file (YAML)",
					},
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Stored calibration run whose model to use",
					},
				},
				"required": []string{"angle_degrees"},
			},
		},
		{
			Name:        "dhpsf_runs",
			Description: "List stored calibration runs, newest first, or fetch one run with its samples and failures.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Return this run in full",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum runs to list (default: 20)",
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
