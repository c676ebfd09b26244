package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/radarcol/radarcol/internal/analysis"
	apperrors "github.com/radarcol/radarcol/internal/errors"
)

// RetryConfig controls the rate-limit retry loop. The waits grow linearly:
// base, base+increment, base+2*increment.
type RetryConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	DelayIncrement time.Duration
}

// DefaultRetryConfig matches the Groq free-tier pacing: three attempts with
// 12s and 20s waits between them
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      12 * time.Second,
		DelayIncrement: 8 * time.Second,
	}
}

// Generator produces narratives via an external text-generation service. It
// implements analysis.Narrator.
type Generator struct {
	client ChatClient
	retry  RetryConfig
}

// NewGenerator creates a generator over the given chat client
func NewGenerator(client ChatClient) *Generator {
	return &Generator{
		client: client,
		retry:  DefaultRetryConfig(),
	}
}

// WithRetryConfig overrides the retry policy, used in tests
func (g *Generator) WithRetryConfig(cfg RetryConfig) *Generator {
	g.retry = cfg
	return g
}

// Narrate generates the summary/factors/recommendations narrative for an
// assessment. On total failure (no response or unparsable response after all
// attempts) it returns the canned fallback; it never returns an error that
// would fail the assessment.
func (g *Generator) Narrate(ctx context.Context, req analysis.NarrativeRequest) (*analysis.Narrative, error) {
	prompt := buildPrompt(req)

	raw, err := g.completeWithRetry(ctx, prompt)
	if err != nil {
		slog.Warn("Narrative generation exhausted, using fallback", "contract", req.Record.ID, "error", err)
		return analysis.FallbackNarrative(), nil
	}

	narrative, err := parseNarrative(raw)
	if err != nil {
		slog.Warn("Narrative response unparsable, using fallback", "contract", req.Record.ID, "error", err)
		return analysis.FallbackNarrative(), nil
	}

	return narrative, nil
}

// completeWithRetry calls the chat client, retrying only on rate-limit
// indications with a linearly increasing wait. Any other error aborts
// immediately.
func (g *Generator) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		raw, err := g.client.Complete(ctx, prompt)
		if err == nil {
			return raw, nil
		}

		lastErr = err
		if !apperrors.IsRateLimit(err) {
			return "", err
		}

		if attempt == g.retry.MaxAttempts-1 {
			break
		}

		delay := g.retry.BaseDelay + time.Duration(attempt)*g.retry.DelayIncrement
		slog.Info("Rate limited by text-generation service, waiting",
			"attempt", attempt+1, "delay", delay)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", lastErr
}

// buildPrompt composes role + evidence + output-format instructions. The
// persona switches on tier: a confirmatory quality auditor for BAJO, a
// forensic auditor for anything higher.
func buildPrompt(req analysis.NarrativeRequest) string {
	var role, instruction string

	if req.Tier == analysis.TierLow {
		role = "Eres un Auditor de Calidad validando un proceso correcto."
		instruction = fmt.Sprintf(`El análisis matemático confirma que este contrato es NORMAL (Riesgo Bajo: %.0f%%).

TAREA:
Escribe un reporte corto confirmando la regularidad del contrato.
- Resumen: Indica que el monto ($%.0f) y el objeto son consistentes con el histórico de la entidad.
- Factores: Menciona "Monto dentro del promedio" y "Descripción clara".
- Recomendaciones: Sugiere "Archivar expediente" o "Continuar trámite".

TONO: Tranquilizador, profesional, de visto bueno.`,
			req.Score*100, req.Record.Value)
	} else {
		role = "Eres un Auditor Forense experto en detección de fraude."

		var evidence strings.Builder
		fmt.Fprintf(&evidence, "EVIDENCIA:\n")
		fmt.Fprintf(&evidence, "1. Score Financiero (ML): %.0f%%\n", req.StatisticalScore*100)
		fmt.Fprintf(&evidence, "2. Score Semántico (Texto): %.0f%%\n", req.SemanticScore*100)
		fmt.Fprintf(&evidence, "3. Desviación Precio (Z-Score): %.1fx veces el promedio de la entidad ($%.0f).\n",
			req.Features.ZScoreValue, req.EntityMean)

		if len(req.Attribution) > 0 {
			fmt.Fprintf(&evidence, "Variables clave:\n")
			top := req.Attribution
			if len(top) > 3 {
				top = top[:3]
			}
			for _, item := range top {
				fmt.Fprintf(&evidence, "- %s (Valor: %.4f)\n", item.Feature, item.Weight)
			}
		}

		instruction = fmt.Sprintf(`ALERTA: El sistema detectó RIESGO %s (%.0f%%).

%s
TAREA:
Explica las anomalías detectadas.
- Resumen: Enfócate en por qué el monto no cuadra con el objeto.
- Factores: Lista qué variables matemáticas dispararon la alerta.
- Recomendaciones: Sugiere auditorías específicas (fiscal, precios, jurídica).

TONO: Alerta, crítico, preventivo.`,
			req.Tier, req.Score*100, evidence.String())
	}

	return fmt.Sprintf(`%s

DATOS:
- Objeto: %q
- Valor: $%.0f

%s

SALIDA JSON OBLIGATORIA:
{
    "resumen": "Texto...",
    "factores": ["Texto...", "Texto..."],
    "recomendaciones": ["Texto...", "Texto..."]
}`,
		role, req.Record.Description, req.Record.Value, instruction)
}
