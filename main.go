package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/citysafe/citysafe-backend/internal/complaints"
	"github.com/citysafe/citysafe-backend/internal/db"
	"github.com/citysafe/citysafe-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	complaints.Init()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RateLimitMiddleware(rate.Limit(50), 100))
	r.Get("/", RootHandler)

	r.Mount("/api", complaints.SetupRoutes())

	fmt.Println("Server listening on port :" + port + "...")

	http.ListenAndServe("0.0.0.0:"+port, r)
}
