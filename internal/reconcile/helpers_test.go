package reconcile

import (
	"errors"
	"strings"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// passthrough maps every attribute except the key attributes.
var passthrough = MapperFunc(func(_ EntityKey, img stream.Image) (snapshot.Object, error) {
	obj, err := img.ToObject()
	if err != nil {
		return nil, err
	}
	delete(obj, "H")
	delete(obj, "R")
	return obj, nil
})

// suffixExclusion excludes tables and hash keys ending in "-ignore".
type suffixExclusion struct {
	failKeys bool
}

func (s suffixExclusion) ExcludeOrigin(o Origin) (bool, error) {
	return strings.HasSuffix(o.Table, "-ignore"), nil
}

func (s suffixExclusion) ExcludeKey(k EntityKey) (bool, error) {
	if s.failKeys {
		return false, errors.New("rule exploded")
	}
	return strings.HasSuffix(k.Hash, "-ignore"), nil
}

func newTestValidator() *Validator {
	return NewValidator(ValidatorOptions{Mapper: passthrough, Exclusion: suffixExclusion{}})
}

func obj(pairs ...snapshot.Pair) snapshot.Object {
	return snapshot.NewObject(pairs...)
}

func key(h, r string) EntityKey {
	return EntityKey{Hash: h, Range: r}
}
