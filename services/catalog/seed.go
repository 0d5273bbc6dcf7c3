package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
)

var demoItems = []catalogapi.CatalogItem{
	{Title: "Gymnopédie No.1", Composer: "Erik Satie", Price: 15000, Pages: 3, Difficulty: catalogapi.DifficultyBeginner, Category: "클래식", Duration: "3:30", Visible: true},
	{Title: "Clair de Lune", Composer: "Claude Debussy", Price: 22000, Pages: 6, Difficulty: catalogapi.DifficultyAdvanced, Category: "클래식", Duration: "5:00", Visible: true},
	{Title: "River Flows in You", Composer: "Yiruma", Price: 12000, Pages: 4, Difficulty: catalogapi.DifficultyIntermediate, Category: "뉴에이지", Duration: "3:10", Visible: true},
	{Title: "Canon in D", Composer: "Johann Pachelbel", Price: 9000, Pages: 4, Difficulty: catalogapi.DifficultyIntermediate, Category: "클래식", Duration: "4:40", Visible: true},
	{Title: "Summer", Composer: "Joe Hisaishi", Price: 18000, Pages: 5, Difficulty: catalogapi.DifficultyIntermediate, Category: "OST", Duration: "4:10", Visible: true},
	{Title: "La Campanella", Composer: "Franz Liszt", Price: 30000, Pages: 12, Difficulty: catalogapi.DifficultyExpert, Category: "클래식", Duration: "5:20", Visible: true},
}

// seedIfEmpty fills an empty catalog with demo items so a fresh local setup has something to sell
func (s *service) seedIfEmpty(c context.Context) error {
	existing, err := s.itemStore.List(c)
	if err != nil {
		return fmt.Errorf("error listing catalog: %s", err)
	}
	if len(existing) > 0 {
		return nil
	}

	s.logger.Log(c, "", mylog.SeverityInfo, "Seeding empty catalog with %d demo items", len(demoItems))

	base := s.nower.Now()
	for idx, item := range demoItems {
		item.UID = uidPrefix + s.uuider.Create()
		// descending CreatedAt keeps the listing in seed order
		item.CreatedAt = base.Add(-time.Duration(idx) * time.Minute)
		err := s.itemStore.Put(c, item.UID, item)
		if err != nil {
			return fmt.Errorf("error seeding catalog item %s: %s", item.Title, err)
		}
	}
	return nil
}
