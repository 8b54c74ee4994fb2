package support

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/barloc/internal/testutil"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/cucumber/godog"
)

// Scene dimensions match the synthetic scenes of the unit tests.
const sceneWidth, sceneHeight = 300, 200

func (testCtx *TestContext) saveScene(name string, img image.Image) error {
	path := testCtx.TempPath(name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (testCtx *TestContext) aCheckerboardImage(name string) error {
	return testCtx.saveScene(name, testutil.CheckerboardScene(sceneWidth, sceneHeight, image.Rect(100, 50, 200, 150), 5))
}

func (testCtx *TestContext) aBarCodeImage(name string) error {
	return testCtx.saveScene(name, testutil.BarsScene(sceneWidth, sceneHeight, image.Rect(90, 60, 210, 140), 3))
}

func (testCtx *TestContext) aBlankImage(name string) error {
	return testCtx.saveScene(name, testutil.CreateTestImage(sceneWidth, sceneHeight, testutil.Background))
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	path := testCtx.TempPath(name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("definitely not an image"), 0o600)
}

// theJSONOutputShouldReportCandidates counts the regions of a batch JSON document.
func (testCtx *TestContext) theJSONOutputShouldReportCandidates(want int) error {
	part, err := testCtx.jsonPart()
	if err != nil {
		return err
	}
	var doc struct {
		Images []struct {
			Result *struct {
				Regions []json.RawMessage `json:"regions"`
			} `json:"result"`
		} `json:"images"`
	}
	if err := json.Unmarshal([]byte(part), &doc); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	got := 0
	for _, img := range doc.Images {
		if img.Result != nil {
			got += len(img.Result.Regions)
		}
	}
	if got != want {
		return fmt.Errorf("expected %d candidates, got %d\nOutput: %s", want, got, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theDirectoryShouldContainFiles(dir string, want int) error {
	entries, err := os.ReadDir(testCtx.absPath(dir))
	if err != nil {
		return err
	}
	if len(entries) != want {
		return fmt.Errorf("expected %d files in %s, found %d", want, dir, len(entries))
	}
	return nil
}

// RegisterImageSteps registers steps that prepare input images.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a checkerboard image "([^"]*)"$`, testCtx.aCheckerboardImage)
	sc.Step(`^a bar code image "([^"]*)"$`, testCtx.aBarCodeImage)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^the JSON output should report (\d+) candidates?$`, testCtx.theJSONOutputShouldReportCandidates)
	sc.Step(`^the directory "([^"]*)" should contain (\d+) files?$`, testCtx.theDirectoryShouldContainFiles)
}
