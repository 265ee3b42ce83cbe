package domain

import (
	"fmt"
	"sort"
	"strings"
)

// PathSeparator разделяет имена в материализованном пути папки
const PathSeparator = "/"

// MaxNameLength ограничивает длину имени папки или изображения
const MaxNameLength = 255

// NormalizeName обрезает пробелы и проверяет имя папки.
// Разделитель пути в имени сломал бы материализованный путь.
func NormalizeName(name string) (string, error) {
	name, err := NormalizeImageName(name)
	if err != nil {
		return "", err
	}
	if strings.Contains(name, PathSeparator) {
		return "", fmt.Errorf("name %q contains %q: %w", name, PathSeparator, ErrInvalidInput)
	}
	return name, nil
}

// NormalizeImageName обрезает пробелы и проверяет имя изображения.
// Имя изображения не входит в пути, поэтому разделитель в нём допустим
func NormalizeImageName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is empty: %w", ErrInvalidInput)
	}
	if len(name) > MaxNameLength {
		return "", fmt.Errorf("name is longer than %d bytes: %w", MaxNameLength, ErrInvalidInput)
	}
	return name, nil
}

// ComputePath возвращает путь папки по её имени и пути родителя
func ComputePath(name string, parentPath *string) string {
	if parentPath == nil {
		return name
	}
	return *parentPath + PathSeparator + name
}

// IsDescendantPath проверяет, что candidate совпадает с ancestor или лежит под ним.
// Сравнение привязано к разделителю: "Foo2" не потомок "Foo".
func IsDescendantPath(candidate, ancestor string) bool {
	if candidate == ancestor {
		return true
	}
	return strings.HasPrefix(candidate, ancestor+PathSeparator)
}

// RebasePath заменяет ведущий префикс oldPrefix на newPrefix ровно один раз.
// Пути вне oldPrefix возвращаются без изменений.
func RebasePath(path, oldPrefix, newPrefix string) string {
	if !IsDescendantPath(path, oldPrefix) {
		return path
	}
	return newPrefix + strings.TrimPrefix(path, oldPrefix)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePrefixPattern строит LIKE-шаблон для потомков пути (ESCAPE '\')
func LikePrefixPattern(path string) string {
	return likeEscaper.Replace(path+PathSeparator) + "%"
}

// SubtreeOf оставляет из candidates только папки, чья цепочка родителей
// доходит до root. Корень входит в результат. Результат отсортирован по пути.
func SubtreeOf(root Folder, candidates []Folder) []Folder {
	byID := make(map[int64]Folder, len(candidates)+1)
	for _, f := range candidates {
		byID[f.ID] = f
	}
	byID[root.ID] = root

	member := map[int64]bool{root.ID: true}
	var reaches func(id int64, depth int) bool
	reaches = func(id int64, depth int) bool {
		if ok, seen := member[id]; seen {
			return ok
		}
		f, ok := byID[id]
		if !ok || f.ParentID == nil || depth > len(byID) {
			member[id] = false
			return false
		}
		ok = reaches(*f.ParentID, depth+1)
		member[id] = ok
		return ok
	}

	result := make([]Folder, 0, len(candidates))
	result = append(result, root)
	for _, f := range candidates {
		if f.ID == root.ID {
			continue
		}
		if reaches(f.ID, 0) {
			result = append(result, f)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result
}
