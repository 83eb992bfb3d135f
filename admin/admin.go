// Package admin provides the HTML/JSON monitoring endpoints for a ssestream
// Server.
package admin

import (
	"encoding/json"
	"log"
	"net/http"

	rice "github.com/GeertJohan/go.rice"
	"github.com/mroth/ssestream"
)

// Handles serving the static HTML page
func adminStatusHTMLHandler(w http.ResponseWriter, r *http.Request) {
	// kinda ridiculous workaround for serving a single static file, sigh.
	box, err := rice.FindBox("views")
	if err != nil {
		log.Printf("error opening rice.Box: %s\n", err)
		http.Error(w, "500 admin page unavailable", http.StatusInternalServerError)
		return
	}

	file, err := box.Open("admin.html")
	if err != nil {
		log.Printf("could not open file: %s\n", err)
		http.Error(w, "500 admin page unavailable", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	fstat, err := file.Stat()
	if err != nil {
		log.Printf("could not stat file: %s\n", err)
		http.Error(w, "500 admin page unavailable", http.StatusInternalServerError)
		return
	}

	http.ServeContent(w, r, fstat.Name(), fstat.ModTime(), file)
}

// Handles serving the JSON status data, effectively the admin API endpoint
func adminStatusDataHandler(w http.ResponseWriter, r *http.Request, s *ssestream.Server) {
	b, err := json.MarshalIndent(s.Status(), "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

// Handler serves the admin page at /admin/ and the status report at
// /admin/status.json.
func Handler(s *ssestream.Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/", adminStatusHTMLHandler)
	mux.HandleFunc("/admin/status.json", func(w http.ResponseWriter, r *http.Request) {
		adminStatusDataHandler(w, r, s)
	})
	return mux
}
