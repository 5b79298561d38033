package main

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/badu/streamform"
	"github.com/badu/streamform/target"
)

const readChunkBytes = 32 * 1024

var (
	addr       string
	uploadDir  string
	fieldName  string
	strictMode bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the upload server",
		Run:   serve,
	}
)

func init() {
	serveCmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "address to listen on")
	serveCmd.Flags().StringVarP(&uploadDir, "upload-dir", "d", ".", "directory to write uploaded files into")
	serveCmd.Flags().StringVarP(&fieldName, "field", "f", "file", "multipart field name accepted as a file upload")
	serveCmd.Flags().BoolVarP(&strictMode, "strict", "s", false, "reject requests carrying any part besides --field")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) {
	http.HandleFunc("/upload", handleUpload)
	logrus.WithFields(logrus.Fields{"addr": addr, "upload-dir": uploadDir}).Info("streamformd listening")
	if err := http.ListenAndServe(addr, nil); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	headers := map[string]string{}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		headers["Content-Type"] = ct
	}
	p, err := streamform.New(headers, strictMode)
	if err != nil {
		logrus.WithError(err).Warn("rejecting request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dt := target.NewDirectoryTarget(uploadDir)
	if err := p.Register(fieldName, dt); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	buf := make([]byte, readChunkBytes)
	for {
		n, readErr := r.Body.Read(buf)
		if n > 0 {
			if err := p.FeedChunk(buf[:n]); err != nil {
				logrus.WithError(err).Warn("upload rejected mid-stream")
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			http.Error(w, readErr.Error(), http.StatusInternalServerError)
			return
		}
	}
	if err := p.Close(); err != nil {
		logrus.WithError(err).Warn("upload truncated")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logrus.WithField("path", dt.Path()).Info("upload stored")
	w.WriteHeader(http.StatusCreated)
}
