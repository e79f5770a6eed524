package config

import "strings"

func (c *Config) normalize() error {
	var err error

	if c.Paths.DownloadDir, err = expandPath(strings.TrimSpace(c.Paths.DownloadDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)

	c.Tools.YtdlpBinary = strings.TrimSpace(c.Tools.YtdlpBinary)
	if loc := strings.TrimSpace(c.Tools.FFmpegLocation); loc != "" {
		if c.Tools.FFmpegLocation, err = expandPath(loc); err != nil {
			return err
		}
	} else {
		c.Tools.FFmpegLocation = ""
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
