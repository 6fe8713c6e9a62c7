package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eduzmena/eduscan/internal/config"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document for analysis",
	Long: `Upload a document for analysis.

Examples:
  eduscan upload ./zapis_projektu.pdf
  eduscan upload ./dochazka.docx --school 3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schoolID, _ := cmd.Flags().GetString("school")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.upload("/files", args[0], schoolID)
		if err != nil {
			return err
		}

		var doc struct {
			ID             string `json:"id"`
			Filename       string `json:"filename"`
			AnalysisStatus string `json:"analysis_status"`
		}
		if err := decodeJSON(resp, &doc); err != nil {
			return err
		}

		printSuccess("Uploaded %s as %s (%s)", doc.Filename, doc.ID, doc.AnalysisStatus)
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("school", "", "school ID to attach the document to")
}

// --- files ---

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage uploaded documents",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		if status != "" {
			q.Set("status", status)
		}
		q.Set("limit", fmt.Sprintf("%d", limit))

		resp, err := client.get("/files?" + q.Encode())
		if err != nil {
			return err
		}

		var body struct {
			Documents []struct {
				ID             string    `json:"id"`
				Filename       string    `json:"filename"`
				UploadedAt     time.Time `json:"uploaded_at"`
				AnalysisStatus string    `json:"analysis_status"`
				AnalysisType   string    `json:"analysis_type"`
			} `json:"documents"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if len(body.Documents) == 0 {
			fmt.Println("no documents")
			return nil
		}
		for _, d := range body.Documents {
			line := fmt.Sprintf("%s  %-10s  %s", d.ID, d.AnalysisStatus, d.Filename)
			if d.AnalysisType != "" {
				line += "  [" + d.AnalysisType + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var filesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/files/" + args[0])
		if err != nil {
			return err
		}

		var doc any
		if err := decodeJSON(resp, &doc); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

var filesTextCmd = &cobra.Command{
	Use:   "text <id>",
	Short: "Print a document's extracted text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/files/" + args[0] + "/text")
		if err != nil {
			return err
		}

		var body struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}
		fmt.Println(body.Text)
		return nil
	},
}

var filesRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Re-queue a done or failed document for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/files/"+args[0]+"/retry", nil)
		if err != nil {
			return err
		}

		var doc struct {
			ID             string `json:"id"`
			AnalysisStatus string `json:"analysis_status"`
		}
		if err := decodeJSON(resp, &doc); err != nil {
			return err
		}

		printSuccess("Document %s is %s again", doc.ID, doc.AnalysisStatus)
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document, its file, and its index entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/files/" + args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted %s", result["deleted"])
		return nil
	},
}

func init() {
	filesListCmd.Flags().String("status", "", "filter by analysis status (pending, processing, done, failed)")
	filesListCmd.Flags().Int("limit", 50, "maximum number of documents to list")
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesShowCmd)
	filesCmd.AddCommand(filesTextCmd)
	filesCmd.AddCommand(filesRetryCmd)
	filesCmd.AddCommand(filesDeleteCmd)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question over the analyzed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/chat", map[string]string{"question": question})
		if err != nil {
			return err
		}

		var body struct {
			Answer  string `json:"answer"`
			Sources []struct {
				DocumentID string  `json:"document_id"`
				ChunkIndex int     `json:"chunk_index"`
				Score      float32 `json:"score"`
			} `json:"sources"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		fmt.Println(body.Answer)
		if len(body.Sources) > 0 {
			fmt.Fprintln(os.Stderr)
			for _, s := range body.Sources {
				printStatus("Source", "%s#%d (%.2f)", s.DocumentID, s.ChunkIndex, s.Score)
			}
		}
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export documents as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		status, _ := cmd.Flags().GetString("status")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/export/documents.xlsx"
		if status != "" {
			path += "?status=" + url.QueryEscape(status)
		}
		resp, err := client.get(path)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		if _, err := io.Copy(f, resp.Body); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}

		printSuccess("Exported documents to %s", output)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("output", "documents.xlsx", "output file path")
	exportCmd.Flags().String("status", "", "filter by analysis status")
}

// --- regions ---

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Manage regions",
}

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/regions")
		if err != nil {
			return err
		}

		var body struct {
			Regions []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"regions"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}
		for _, r := range body.Regions {
			fmt.Printf("%d  %s\n", r.ID, r.Name)
		}
		return nil
	},
}

var regionsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/regions", map[string]string{"name": args[0]})
		if err != nil {
			return err
		}

		var created struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}

		printSuccess("Created region %d (%s)", created.ID, created.Name)
		return nil
	},
}

var regionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a region",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put("/regions/"+args[0], map[string]string{"name": args[1]})
		if err != nil {
			return err
		}

		var updated struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := decodeJSON(resp, &updated); err != nil {
			return err
		}

		printSuccess("Renamed region %d to %s", updated.ID, updated.Name)
		return nil
	},
}

var regionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a region without schools",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/regions/" + args[0])
		if err != nil {
			return err
		}

		var result map[string]int64
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted region %d", result["deleted"])
		return nil
	},
}

func init() {
	regionsCmd.AddCommand(regionsListCmd)
	regionsCmd.AddCommand(regionsAddCmd)
	regionsCmd.AddCommand(regionsRenameCmd)
	regionsCmd.AddCommand(regionsDeleteCmd)
}

// --- schools ---

var schoolsCmd = &cobra.Command{
	Use:   "schools",
	Short: "Manage schools",
}

var schoolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schools",
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/schools"
		if region != "" {
			path += "?region_id=" + url.QueryEscape(region)
		}
		resp, err := client.get(path)
		if err != nil {
			return err
		}

		var body struct {
			Schools []struct {
				ID       int64  `json:"id"`
				Name     string `json:"name"`
				RegionID int64  `json:"region_id"`
			} `json:"schools"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}
		for _, s := range body.Schools {
			fmt.Printf("%d  %s (region %d)\n", s.ID, s.Name, s.RegionID)
		}
		return nil
	},
}

var schoolsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a school in a region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regionID, _ := cmd.Flags().GetInt64("region")
		if regionID == 0 {
			return fmt.Errorf("--region is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/schools", map[string]any{"name": args[0], "region_id": regionID})
		if err != nil {
			return err
		}

		var created struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}

		printSuccess("Created school %d (%s)", created.ID, created.Name)
		return nil
	},
}

var schoolsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a school, detaching its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/schools/" + args[0])
		if err != nil {
			return err
		}

		var result map[string]int64
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted school %d", result["deleted"])
		return nil
	},
}

func init() {
	schoolsListCmd.Flags().String("region", "", "filter by region ID")
	schoolsAddCmd.Flags().Int64("region", 0, "region ID the school belongs to")
	schoolsCmd.AddCommand(schoolsListCmd)
	schoolsCmd.AddCommand(schoolsAddCmd)
	schoolsCmd.AddCommand(schoolsDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
