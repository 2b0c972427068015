package catalog

import (
	"fmt"
	"strconv"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/models"

	"gorm.io/gorm"
)

type RefKind string

const (
	ByID   RefKind = "id"
	ByName RefKind = "name"
)

// Ref: id veya isim olarak etiketlenmiş ürün/stok referansı. Etiketleme API
// sınırında bir kez yapılır; çağrı yığınının derinlerinde string koklama
// yapılmaz.
type Ref struct {
	Kind  RefKind
	Value string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Value)
}

func RefByID(id uint) Ref {
	return Ref{Kind: ByID, Value: strconv.FormatUint(uint64(id), 10)}
}

func RefByName(name string) Ref {
	return Ref{Kind: ByName, Value: name}
}

// ResolveProducts: Referansları tek batch'te canonical ürün satırlarına
// çözer. Çözülemeyen referansların TAMAMI NotFound içinde listelenir; isimle
// eşleşen birden fazla satır varsa (legacy duplike veri) Conflict döner.
func ResolveProducts(db *gorm.DB, refs []Ref) (map[Ref]models.Product, error) {
	ids := make([]uint, 0)
	names := make([]string, 0)
	for _, r := range refs {
		switch r.Kind {
		case ByID:
			id, err := strconv.ParseUint(r.Value, 10, 32)
			if err != nil {
				return nil, apperr.Validation("Geçersiz ürün id: %s", r.Value)
			}
			ids = append(ids, uint(id))
		case ByName:
			if r.Value == "" {
				return nil, apperr.Validation("Ürün adı boş olamaz")
			}
			names = append(names, r.Value)
		default:
			return nil, apperr.Validation("Bilinmeyen referans türü: %s", r.Kind)
		}
	}

	var rows []models.Product
	q := db.Model(&models.Product{})
	switch {
	case len(ids) > 0 && len(names) > 0:
		q = q.Where("id IN ?", ids).Or("name IN ?", names)
	case len(ids) > 0:
		q = q.Where("id IN ?", ids)
	case len(names) > 0:
		q = q.Where("name IN ?", names)
	default:
		return map[Ref]models.Product{}, nil
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.IO(err, "Ürünler okunamadı")
	}

	byID := make(map[uint]models.Product, len(rows))
	byName := make(map[string][]models.Product)
	for _, p := range rows {
		byID[p.ID] = p
		byName[p.Name] = append(byName[p.Name], p)
	}

	resolved := make(map[Ref]models.Product, len(refs))
	missing := make([]string, 0)
	for _, r := range refs {
		switch r.Kind {
		case ByID:
			id, _ := strconv.ParseUint(r.Value, 10, 32)
			p, ok := byID[uint(id)]
			if !ok {
				missing = append(missing, r.String())
				continue
			}
			resolved[r] = p
		case ByName:
			matches := byName[r.Value]
			if len(matches) > 1 {
				// İsim tekilliği index ile korunuyor ama eski veride duplike
				// olabilir; sessizce birini seçmek yerine reddet
				return nil, apperr.Conflict(fmt.Sprintf("Birden fazla ürün aynı isimde: %s", r.Value), false)
			}
			if len(matches) == 0 {
				missing = append(missing, r.String())
				continue
			}
			resolved[r] = matches[0]
		}
	}

	if len(missing) > 0 {
		return nil, apperr.NotFound("Ürün(ler) bulunamadı", missing...)
	}
	return resolved, nil
}

// ResolveStockItems: ResolveProducts ile aynı sözleşme, stok kalemleri için.
func ResolveStockItems(db *gorm.DB, refs []Ref) (map[Ref]models.StockItem, error) {
	ids := make([]uint, 0)
	names := make([]string, 0)
	for _, r := range refs {
		switch r.Kind {
		case ByID:
			id, err := strconv.ParseUint(r.Value, 10, 32)
			if err != nil {
				return nil, apperr.Validation("Geçersiz stok id: %s", r.Value)
			}
			ids = append(ids, uint(id))
		case ByName:
			if r.Value == "" {
				return nil, apperr.Validation("Stok kalemi adı boş olamaz")
			}
			names = append(names, r.Value)
		default:
			return nil, apperr.Validation("Bilinmeyen referans türü: %s", r.Kind)
		}
	}

	var rows []models.StockItem
	q := db.Model(&models.StockItem{})
	switch {
	case len(ids) > 0 && len(names) > 0:
		q = q.Where("id IN ?", ids).Or("name IN ?", names)
	case len(ids) > 0:
		q = q.Where("id IN ?", ids)
	case len(names) > 0:
		q = q.Where("name IN ?", names)
	default:
		return map[Ref]models.StockItem{}, nil
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.IO(err, "Stok kalemleri okunamadı")
	}

	byID := make(map[uint]models.StockItem, len(rows))
	byName := make(map[string][]models.StockItem)
	for _, s := range rows {
		byID[s.ID] = s
		byName[s.Name] = append(byName[s.Name], s)
	}

	resolved := make(map[Ref]models.StockItem, len(refs))
	missing := make([]string, 0)
	for _, r := range refs {
		switch r.Kind {
		case ByID:
			id, _ := strconv.ParseUint(r.Value, 10, 32)
			s, ok := byID[uint(id)]
			if !ok {
				missing = append(missing, r.String())
				continue
			}
			resolved[r] = s
		case ByName:
			matches := byName[r.Value]
			if len(matches) > 1 {
				return nil, apperr.Conflict(fmt.Sprintf("Birden fazla stok kalemi aynı isimde: %s", r.Value), false)
			}
			if len(matches) == 0 {
				missing = append(missing, r.String())
				continue
			}
			resolved[r] = matches[0]
		}
	}

	if len(missing) > 0 {
		return nil, apperr.NotFound("Stok kalem(ler)i bulunamadı", missing...)
	}
	return resolved, nil
}
