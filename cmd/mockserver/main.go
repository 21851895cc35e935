package main

import (
	"log"
	"net/http"

	"github.com/ShroXd/surveilans/internal/mock"
)

const addr = ":6657"

func main() {
	portal := mock.NewPortal()
	portal.Diseases = mock.SampleDiseases()
	portal.Districts = mock.SampleDistricts()
	portal.Table = mock.RandomTables(42)

	mux := http.NewServeMux()
	mux.Handle("/sarsbaru/", portal)

	log.Println("Mock portal is running on http://localhost" + addr + "/sarsbaru/")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
