package service

import "turtle_bot/internal/models"

// nState — сглаженный средний истинный диапазон (N) по одному инструменту.
// Рекурсия Уайлдера: N = ((w-1)*N_prev + TR) / w, сид — простое среднее
// первых w истинных диапазонов. До сида N = NotReady.
type nState struct {
	window    int
	simple    bool // простое скользящее среднее вместо рекурсии
	prevClose float64
	hasPrev   bool

	seedSum float64
	seedCnt int
	trs     []float64 // окно TR, только для simple-режима

	value float64
	ready bool
}

func newNState(window int, simple bool) *nState {
	if window < 1 {
		window = 1
	}
	return &nState{
		window: window,
		simple: simple,
		trs:    make([]float64, 0, window),
	}
}

func (n *nState) Update(bar models.Bar) {
	tr := bar.TrueRange(n.prevClose, n.hasPrev)
	n.prevClose = bar.Close
	n.hasPrev = true

	if n.simple {
		n.trs = append(n.trs, tr)
		if len(n.trs) > n.window {
			n.trs = n.trs[1:]
		}
		if len(n.trs) == n.window {
			sum := 0.0
			for _, v := range n.trs {
				sum += v
			}
			n.value = sum / float64(n.window)
			n.ready = true
		}
		return
	}

	if !n.ready {
		n.seedSum += tr
		n.seedCnt++
		if n.seedCnt == n.window {
			n.value = n.seedSum / float64(n.window)
			n.ready = true
		}
		return
	}
	n.value = (float64(n.window-1)*n.value + tr) / float64(n.window)
}

func (n *nState) Ready() bool    { return n.ready }
func (n *nState) Value() float64 { return n.value }
