package sharder

import "fmt"

// reader is the minimal surface sharder needs from the memory-mapped
// corpus file; golang.org/x/exp/mmap.ReaderAt satisfies it.
type reader interface {
	ReadAt(p []byte, off int64) (int, error)
	Len() int
}

// chunk is a half-open byte range [Start, End) of the corpus that
// contains only whole lines.
type chunk struct {
	Start int64
	End   int64
}

// planChunks divides a corpus of the given size into chunks of
// approximately targetSize bytes each (corpus size / threads when
// targetSize is not positive; otherwise the chunk count does not depend
// on threads), expanding every
// chunk's end forward to the next newline so no chunk splits a line in
// half. Expansion is capped so a chunk never grows past maxSize bytes
// beyond its target end.
func planChunks(r reader, threads int, targetSize, maxSize int64) ([]chunk, error) {
	total := int64(r.Len())
	if total == 0 {
		return nil, nil
	}
	if threads < 1 {
		threads = 1
	}
	if targetSize <= 0 {
		targetSize = total / int64(threads)
		if targetSize <= 0 {
			targetSize = total
		}
	}
	if maxSize <= 0 {
		maxSize = targetSize * 2
	}

	var chunks []chunk
	start := int64(0)
	for start < total {
		target := start + targetSize
		if target > total {
			target = total
		}

		end, err := expandToNewline(r, target, total, start+targetSize+maxSize)
		if err != nil {
			return nil, fmt.Errorf("sharder: failed to plan chunk starting at %d: %w", start, err)
		}

		chunks = append(chunks, chunk{Start: start, End: end})
		start = end
	}
	return chunks, nil
}

// scanWindow bounds how much of the file expandToNewline reads at a
// time while looking for the next newline.
const scanWindow = 64 * 1024

// expandToNewline returns the first offset >= from that is either the
// position right after a '\n', or total (EOF), never exceeding hardCap.
// If no newline is found before hardCap, it returns hardCap — the
// chunk is truncated rather than left unbounded.
func expandToNewline(r reader, from, total, hardCap int64) (int64, error) {
	if from >= total {
		return total, nil
	}
	if hardCap > total {
		hardCap = total
	}

	buf := make([]byte, scanWindow)
	pos := from
	for pos < hardCap {
		want := hardCap - pos
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		n, err := r.ReadAt(buf[:want], pos)
		if n > 0 {
			if idx := indexByte(buf[:n], '\n'); idx >= 0 {
				return pos + int64(idx) + 1, nil
			}
		}
		if err != nil {
			break
		}
		pos += int64(n)
		if n == 0 {
			break
		}
	}
	return hardCap, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
