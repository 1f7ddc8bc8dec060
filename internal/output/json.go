package output

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/modalyze/modalyze/internal/media"
)

func pathKey(t media.Type) string {
	switch t {
	case media.TypeAudio:
		return "audio_path"
	case media.TypeVideo:
		return "video_path"
	default:
		return "image_path"
	}
}

// formatJSON renders results as a pretty-printed JSON array. The default
// shape keeps only the path and the outcome; verbose emits full records.
func formatJSON(t media.Type, results []Result, verbose bool) (string, error) {
	arr := []byte("[]")
	for _, r := range results {
		item := simplifiedItem(t, r)
		if verbose {
			item = verboseItem(t, r)
		}
		var err error
		arr, err = sjson.SetRawBytes(arr, "-1", item)
		if err != nil {
			return "", err
		}
	}
	pretty := gjson.GetBytes(arr, "@pretty").String()
	return strings.TrimSuffix(pretty, "\n"), nil
}

func simplifiedItem(t media.Type, r Result) []byte {
	obj := []byte("{}")
	obj, _ = sjson.SetBytes(obj, pathKey(t), r.Path)

	switch t {
	case media.TypeAudio:
		obj, _ = sjson.SetBytes(obj, "mode", displayMode(t, r.Mode))
		obj, _ = sjson.SetBytes(obj, "success", r.Success)
		switch {
		case !r.Success:
			obj, _ = sjson.SetBytes(obj, "error", r.Err)
		case r.Mode == "transcript":
			obj, _ = sjson.SetBytes(obj, "transcript", r.Transcript)
		default:
			obj, _ = sjson.SetBytes(obj, "analysis", r.Analysis)
			obj, _ = sjson.SetBytes(obj, "transcript", r.Transcript)
		}
	case media.TypeVideo:
		obj, _ = sjson.SetBytes(obj, "mode", displayMode(t, r.Mode))
		obj, _ = sjson.SetBytes(obj, "success", r.Success)
		if r.Success {
			obj, _ = sjson.SetBytes(obj, "analysis", r.Analysis)
		} else {
			obj, _ = sjson.SetBytes(obj, "error", r.Err)
		}
	default:
		if r.Success {
			obj, _ = sjson.SetBytes(obj, "analysis", r.Analysis)
		} else {
			obj, _ = sjson.SetRawBytes(obj, "analysis", []byte("null"))
		}
		obj, _ = sjson.SetBytes(obj, "success", r.Success)
		if !r.Success {
			obj, _ = sjson.SetBytes(obj, "error", r.Err)
		}
	}
	return obj
}

func verboseItem(t media.Type, r Result) []byte {
	obj := []byte("{}")
	obj, _ = sjson.SetBytes(obj, pathKey(t), r.Path)
	obj = setNullableString(obj, "model", r.Model)

	switch t {
	case media.TypeAudio:
		obj, _ = sjson.SetBytes(obj, "mode", displayMode(t, r.Mode))
		obj, _ = sjson.SetBytes(obj, "transcript", r.Transcript)
		if r.Mode != "transcript" {
			obj, _ = sjson.SetBytes(obj, "analysis", r.Analysis)
			obj = setNullableString(obj, "prompt", r.Prompt)
			obj, _ = sjson.SetBytes(obj, "word_count", r.WordCount)
		}
	case media.TypeVideo:
		obj, _ = sjson.SetBytes(obj, "mode", displayMode(t, r.Mode))
		obj, _ = sjson.SetBytes(obj, "analysis", r.Analysis)
		obj = setNullableString(obj, "prompt", r.Prompt)
		obj, _ = sjson.SetBytes(obj, "word_count", r.WordCount)
	default:
		obj = setNullableString(obj, "prompt", r.Prompt)
		obj, _ = sjson.SetBytes(obj, "word_count", r.WordCount)
		obj = setNullableString(obj, "analysis", r.Analysis)
	}

	if r.Info != nil {
		obj, _ = sjson.SetBytes(obj, "file_info", r.Info)
	}
	obj, _ = sjson.SetBytes(obj, "success", r.Success)
	obj = setNullableString(obj, "error", r.Err)
	return obj
}

func setNullableString(obj []byte, key, val string) []byte {
	if val == "" {
		obj, _ = sjson.SetRawBytes(obj, key, []byte("null"))
		return obj
	}
	obj, _ = sjson.SetBytes(obj, key, val)
	return obj
}
