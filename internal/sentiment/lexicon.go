package sentiment

var polarityIntensifiers = map[string]float64{
	"very":          1.3,
	"really":        1.3,
	"extremely":     1.5,
	"incredibly":    1.5,
	"super":         1.3,
	"so":            1.2,
	"too":           1.2,
	"totally":       1.3,
	"absolutely":    1.4,
	"quite":         1.1,
	"pretty":        1.1,
	"highly":        1.3,
	"most":          1.3,
	"completely":    1.4,
	"somewhat":      0.7,
	"slightly":      0.6,
	"barely":        0.5,
	"kinda":         0.8,
	"fairly":        0.9,
	"exceptionally": 1.5,
}

var polarityNegations = map[string]bool{
	"not":       true,
	"no":        true,
	"never":     true,
	"none":      true,
	"nothing":   true,
	"neither":   true,
	"nor":       true,
	"without":   true,
	"don't":     true,
	"doesn't":   true,
	"didn't":    true,
	"isn't":     true,
	"wasn't":    true,
	"aren't":    true,
	"weren't":   true,
	"won't":     true,
	"wouldn't":  true,
	"can't":     true,
	"cannot":    true,
	"couldn't":  true,
	"shouldn't": true,
	"hasn't":    true,
	"haven't":   true,
	"ain't":     true,
}

var polarityLexicon = map[string]float64{
	// positive
	"love":        0.5,
	"loved":       0.7,
	"loving":      0.6,
	"loves":       0.5,
	"like":        0.2,
	"liked":       0.3,
	"good":        0.7,
	"great":       0.8,
	"excellent":   1.0,
	"amazing":     0.6,
	"awesome":     1.0,
	"fantastic":   0.4,
	"wonderful":   1.0,
	"perfect":     1.0,
	"best":        1.0,
	"better":      0.5,
	"nice":        0.6,
	"happy":       0.8,
	"glad":        0.5,
	"beautiful":   0.85,
	"brilliant":   0.9,
	"cool":        0.35,
	"fun":         0.3,
	"enjoy":       0.4,
	"enjoyed":     0.4,
	"recommend":   0.4,
	"recommended": 0.4,
	"reliable":    0.5,
	"sturdy":      0.4,
	"comfortable": 0.4,
	"easy":        0.43,
	"helpful":     0.5,
	"useful":      0.3,
	"worth":       0.3,
	"solid":       0.3,
	"impressive":  1.0,
	"impressed":   0.8,
	"favorite":    0.5,
	"favourite":   0.5,
	"superb":      1.0,
	"durable":     0.4,
	"clean":       0.37,
	"fresh":       0.3,
	"new":         0.14,
	"works":       0.2,
	"handy":       0.4,
	"thanks":      0.2,
	"thank":       0.2,
	"win":         0.8,
	"success":     0.3,
	"solved":      0.3,
	"cheap":       0.4,
	"quick":       0.33,
	"fast":        0.2,
	"lovely":      0.5,
	"incredible":  0.9,
	"pleased":     0.5,
	"satisfied":   0.5,
	"gorgeous":    0.7,

	// negative
	"bad":           -0.7,
	"worse":         -0.4,
	"worst":         -1.0,
	"terrible":      -1.0,
	"awful":         -1.0,
	"horrible":      -1.0,
	"hate":          -0.8,
	"hated":         -0.9,
	"hates":         -0.8,
	"poor":          -0.4,
	"broken":        -0.4,
	"broke":         -0.4,
	"useless":       -0.5,
	"disappointed":  -0.75,
	"disappointing": -0.6,
	"annoying":      -0.8,
	"sad":           -0.5,
	"angry":         -0.5,
	"ugly":          -0.7,
	"wrong":         -0.5,
	"problem":       -0.3,
	"problems":      -0.3,
	"issue":         -0.2,
	"issues":        -0.2,
	"fail":          -0.5,
	"failed":        -0.5,
	"flimsy":        -0.5,
	"leaky":         -0.4,
	"leak":          -0.3,
	"leaked":        -0.3,
	"expensive":     -0.5,
	"overpriced":    -0.6,
	"waste":         -0.6,
	"junk":          -0.6,
	"garbage":       -0.7,
	"stupid":        -0.8,
	"dirty":         -0.6,
	"slow":          -0.3,
	"hard":          -0.29,
	"difficult":     -0.5,
	"uncomfortable": -0.5,
	"cheaply":       -0.4,
	"avoid":         -0.4,
	"regret":        -0.6,
	"sucks":         -0.7,
	"meh":           -0.2,
	"mediocre":      -0.4,
	"unreliable":    -0.5,
	"cold":          -0.6,
	"wet":           -0.1,
	"bug":           -0.3,
	"error":         -0.3,
}
