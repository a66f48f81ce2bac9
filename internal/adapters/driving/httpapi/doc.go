// Package httpapi exposes the synchroniser and retriever over HTTP using gin.
//
// Routes:
//
//	POST /api/webhooks/cms   CMS webhook, HMAC-SHA256 signed
//	GET  /api/admin/sync     index statistics
//	POST /api/admin/sync     full sync
//	POST /api/retrieve       similarity search for a question
//	GET  /healthz            liveness
//
// Every response is a JSON object with a boolean "success" field and either
// a result or an "error" message.
package httpapi
