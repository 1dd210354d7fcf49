package motion

// mog2 is a single-Gaussian-per-pixel approximation of OpenCV's
// mixture-of-Gaussians background subtractor (detectShadows=false). A full
// multi-Gaussian mixture is out of proportion to this analyzer's share of
// the system; the single-component running-mean/variance model keeps the
// same per-pixel update contract (history controls the learning rate,
// var_threshold gates foreground classification) that spec §4.3 describes.
type mog2 struct {
	w, h      int
	mean      []float64
	variance  []float64
	alpha     float64
	threshold float64
	primed    bool
}

func newMOG2(w, h, history int, varThreshold float64) *mog2 {
	if history <= 0 {
		history = 500
	}
	return &mog2{
		w:         w,
		h:         h,
		mean:      make([]float64, w*h),
		variance:  make([]float64, w*h),
		alpha:     1.0 / float64(history),
		threshold: varThreshold,
	}
}

// apply updates the background model with gray and returns a foreground
// mask (255 = foreground). The first call only primes the model.
func (m *mog2) apply(gray []byte) []byte {
	mask := make([]byte, len(gray))
	for i, px := range gray {
		v := float64(px)
		if !m.primed {
			m.mean[i] = v
			m.variance[i] = 225 // ~15^2 initial std-dev guess
			continue
		}
		diff := v - m.mean[i]
		sqDist := diff * diff
		if m.variance[i] < 4 {
			m.variance[i] = 4
		}
		if sqDist > m.threshold*m.threshold*m.variance[i] {
			mask[i] = 255
		} else {
			m.mean[i] += m.alpha * diff
			m.variance[i] += m.alpha * (sqDist - m.variance[i])
		}
	}
	m.primed = true
	return mask
}
