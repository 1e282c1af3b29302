package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veidt/faceprobe/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	identifyHandler := handlers.NewIdentifyHandler(s.deps)
	configHandler := handlers.NewConfigHandler(s.deps)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", configHandler.Get)
		r.Post("/identify", identifyHandler.Identify)
		r.Post("/candidates", identifyHandler.Candidates)
	})

	s.router.Get("/", s.serveIndex)
}

// serveIndex serves the built-in upload page.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>faceprobe</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 720px; margin: 40px auto; background: #1a1a2e; color: #eee; padding: 0 16px; }
        h1 { color: #00d9ff; }
        form { background: #2a2a3e; padding: 16px; border-radius: 8px; }
        label { display: block; margin: 8px 0 4px; color: #aaa; }
        button { margin-top: 12px; background: #00d9ff; border: none; padding: 8px 20px; border-radius: 4px; cursor: pointer; }
        pre { background: #2a2a3e; padding: 16px; border-radius: 8px; overflow-x: auto; }
        .ok { color: #6f6; }
        .bad { color: #f66; }
    </style>
</head>
<body>
    <h1>faceprobe</h1>
    <p>Upload a photo to identify it against the template database.</p>
    <form id="f">
        <label>Photo</label>
        <input type="file" name="file" accept="image/*" required>
        <label>Metric</label>
        <select name="metric"><option value="">default</option><option>cosine</option><option>euclidean</option></select>
        <label>Threshold (empty accepts any match)</label>
        <input type="number" name="threshold" step="0.01" min="0">
        <button type="submit">Identify</button>
    </form>
    <h2 id="verdict"></h2>
    <pre id="out"></pre>
    <script>
        const f = document.getElementById('f');
        f.addEventListener('submit', async (e) => {
            e.preventDefault();
            const data = new FormData(f);
            if (!data.get('metric')) data.delete('metric');
            if (!data.get('threshold')) data.delete('threshold');
            const resp = await fetch('/api/v1/identify', { method: 'POST', body: data });
            const body = await resp.json();
            const verdict = document.getElementById('verdict');
            if (body.result && body.result.match_accepted) {
                verdict.textContent = 'They are ' + body.result.name;
                verdict.className = 'ok';
            } else {
                verdict.textContent = (body.result && body.result.name) || 'No match found';
                verdict.className = 'bad';
            }
            document.getElementById('out').textContent = JSON.stringify(body, null, 2);
        });
    </script>
</body>
</html>`
