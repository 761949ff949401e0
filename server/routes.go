// routes.go - HTTP-Oberflaeche: /health, /load, /generate
//
// Enthaelt: NewRouter, healthHandler, loadHandler, generateHandler.
// Gegroundet auf server/routes.go des Lehrers (gin + gin-contrib/cors),
// aber auf drei Routen reduziert, da diese Engine kein Registry/Blob-
// Cache-Konzept hat (siehe DESIGN.md).
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bitllama/engine/history"
	"github.com/bitllama/engine/runner"
	"github.com/bitllama/engine/sample"
)

// NewRouter builds the gin engine serving health, load, and generate.
// historyDB may be nil, in which case runs are not recorded.
func NewRouter(engine *Engine, historyDB *history.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost", "http://127.0.0.1"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", healthHandler(engine))
	r.POST("/load", loadHandler(engine))
	r.POST("/generate", generateHandler(engine, historyDB))

	return r
}

func healthHandler(engine *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, path, err := engine.Snapshot()
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "model_loaded": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "model_loaded": true, "weights_path": path})
	}
}

type loadRequest struct {
	Path                 string `json:"path" binding:"required"`
	AcceleratorFreeBytes int64  `json:"accelerator_free_bytes"`
}

func loadHandler(engine *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := engine.Load(req.Path, req.AcceleratorFreeBytes); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "loaded", "path": req.Path})
	}
}

type generateRequest struct {
	Prompt       string  `json:"prompt"`
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float32 `json:"temperature"`
	TopK         int     `json:"top_k"`
	TopP         float32 `json:"top_p"`
	Seed         int64   `json:"seed"`
}

type generateChunk struct {
	Token string `json:"token"`
	Done  bool   `json:"done"`
}

// generateHandler streams one NDJSON line per emitted token, in the
// same order the generation loop's callback fires: a line is written
// for token i before ForwardOne runs for token i+1.
func generateHandler(engine *Engine, historyDB *history.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		m, tok, weightsPath, err := engine.Snapshot()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		promptIDs, err := tok.Encode(req.Prompt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		samplingCfg := sample.Config{Temperature: req.Temperature, TopK: req.TopK, TopP: req.TopP, Seed: req.Seed}
		sampler := sample.New(samplingCfg)
		seq := runner.NewSequence(m)
		opts := runner.Options{MaxNewTokens: req.MaxNewTokens, BOSToken: tok.BOS(), StopTokens: runner.StopTokensFrom(tok)}

		c.Header("Content-Type", "application/x-ndjson")
		c.Status(http.StatusOK)
		enc := json.NewEncoder(c.Writer)

		onToken := func(id int32) bool {
			text, decErr := tok.Decode([]int32{id})
			if decErr != nil {
				return false
			}
			enc.Encode(generateChunk{Token: text})
			c.Writer.Flush()
			return true
		}

		generated, genErr := runner.Generate(nil, m, seq, promptIDs, sampler, opts, onToken)
		enc.Encode(generateChunk{Done: true})
		c.Writer.Flush()

		if historyDB != nil {
			_ = historyDB.RecordRun(history.Run{
				ID:            seq.ID.String(),
				WeightsPath:   weightsPath,
				Sampling:      samplingCfg,
				Prompt:        req.Prompt,
				EmittedTokens: len(generated),
			})
		}

		if genErr != nil && genErr != runner.ErrCancelled {
			c.Error(genErr)
		}
	}
}
