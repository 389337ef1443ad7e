package main

import (
	"log"
	"os"

	"Rishui/AI"
	"Rishui/Controllers"
	"Rishui/CronJobs"
	"Rishui/FiberConfig"
	"Rishui/Models"
	"Rishui/Pdf"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	Models.Connect()

	var analyzer Controllers.RiskAnalyzer
	if client := AI.NewClient(os.Getenv("OPENAI_API_KEY"), ""); client != nil {
		analyzer = client
	} else {
		log.Println("OPENAI_API_KEY not set, report risk analysis disabled")
	}

	renderer, err := Pdf.NewRenderer("./Templates", "./public", os.Getenv("CHROMIUM_PATH"))
	if err != nil {
		log.Fatalln("Failed to initialize document renderer:", err)
	}

	expiryChecker := CronJobs.NewExpiryChecker(Models.DB, true)
	if err := expiryChecker.Start(); err != nil {
		log.Println("Failed to start license expiry scheduler:", err)
	}
	defer expiryChecker.Stop()

	reports := Controllers.NewReportController(Models.DB, analyzer, renderer, Controllers.ReportConfig{
		PublicDir: "./public",
	})

	FiberConfig.FiberConfig(reports)
}
