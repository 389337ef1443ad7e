package Controllers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"Rishui/Models"

	"github.com/disintegration/imaging"
)

const maxSignatureWidth = 600

// storeSignatures decodes the signature data URLs captured on the form and
// writes them under public/signatures. Runs after the report is committed;
// failures only cost the images.
func (rc *ReportController) storeSignatures(report *Models.Report, req CreateReportRequest) {
	updates := map[string]interface{}{}

	if req.InspectorSignature != "" {
		path, err := rc.saveSignature(req.InspectorSignature, fmt.Sprintf("report_%d_inspector.png", report.ID))
		if err != nil {
			log.Printf("Failed to store inspector signature for report %d: %v", report.ID, err)
		} else {
			report.InspectorSignaturePath = path
			updates["inspector_signature_path"] = path
		}
	}

	// Old clients send the literal "REFUSED" instead of the boolean flag.
	ownerRefused := req.OwnerRefusedSign || req.OwnerSignature == "REFUSED"
	if ownerRefused && !report.OwnerRefusedSign {
		report.OwnerRefusedSign = true
		updates["owner_refused_sign"] = true
	}

	if req.OwnerSignature != "" && !ownerRefused {
		path, err := rc.saveSignature(req.OwnerSignature, fmt.Sprintf("report_%d_owner.png", report.ID))
		if err != nil {
			log.Printf("Failed to store owner signature for report %d: %v", report.ID, err)
		} else {
			report.OwnerSignaturePath = path
			updates["owner_signature_path"] = path
		}
	}

	if len(updates) > 0 {
		if err := rc.DB.Model(report).Updates(updates).Error; err != nil {
			log.Printf("Failed to store signature paths for report %d: %v", report.ID, err)
		}
	}
}

// saveSignature decodes a base64 data URL into an image and re-encodes it
// as PNG under PublicDir/signatures. Returns the path relative to the
// public root, the form the print template resolves.
func (rc *ReportController) saveSignature(dataURL, fileName string) (string, error) {
	payload := dataURL
	if idx := strings.Index(payload, ","); idx >= 0 {
		payload = payload[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decoding signature: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decoding signature image: %w", err)
	}

	// Signature pads export at device resolution; cap the width so stored
	// images stay small and print consistently.
	if img.Bounds().Dx() > maxSignatureWidth {
		img = imaging.Resize(img, maxSignatureWidth, 0, imaging.Lanczos)
	}

	dir := filepath.Join(rc.Cfg.PublicDir, "signatures")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	if err := imaging.Save(img, filepath.Join(dir, fileName)); err != nil {
		return "", fmt.Errorf("saving signature: %w", err)
	}

	return "/signatures/" + fileName, nil
}
