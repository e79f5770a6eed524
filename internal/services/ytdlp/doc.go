// Package ytdlp wraps the yt-dlp command line tool as a subprocess.
//
// The client materializes a remote media URL into a single local file,
// translating yt-dlp's --newline progress stream into ProgressUpdate events
// and its failure modes into categorized errors. Command execution sits
// behind the Executor interface so tests can inject canned output without a
// yt-dlp install.
package ytdlp
