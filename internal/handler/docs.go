package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Dealflow Service

Turns offering memoranda, lease abstracts and listing links into parsed facts,
enrichment, risk scores, financial projections and a versioned investment memo.

## Lifecycle

draft -> ingested -> enriched -> underwritten -> memo_generated, and archived
from any state through POST /api/deals/{id}/archive. Status never moves back.

## Routes

- GET /healthz
- GET /readyz
- GET /swagger/index.html
- POST /api/deals
- GET /api/deals?status=&tenant=&market=&limit=&offset=
- GET /api/deals/{id}
- DELETE /api/deals/{id}
- POST /api/deals/{id}/archive
- POST /api/deals/{id}/ingest
- POST /api/deals/{id}/enrich
- POST /api/deals/{id}/underwrite
- POST /api/deals/{id}/memo
- GET /api/deals/{id}/memos
- POST /api/deals/{id}/explain
- POST /api/deals/{id}/pipeline
- GET /api/deals/{id}/pipeline/stream (websocket)
- GET /api/pipeline-runs/{id}
- GET /api/portfolio/insights

## Auth

When the server has DEALFLOW_JWT_SECRET set, /api routes need
"Authorization: Bearer <token>". Reader tokens may only read; operator tokens
may also create deals and run stages. Issue one with "dealctl token issue".

## Errors

Every error body is {"code": <http status>, "message": ..., "meta": {"kind": ...}}.
Kinds: not_found (404), precondition_failed (409), service_unavailable (503),
upstream_error (502), malformed_response (502), validation_error (400),
unauthorized (401 or 403).
`)
	})
}
